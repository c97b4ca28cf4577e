package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/weldscan/pkg/kernel"
	"github.com/chazu/weldscan/pkg/kernel/brep"
	"github.com/chazu/weldscan/pkg/weld"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms model source before passing it to zygomys.
// It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: plate-pair -> plate_pair
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. ; line comments become // comments.
//
// All transformations respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a vector.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpFaces is the set of faces one geometry builtin added.
type sexpFaces struct {
	kind  string
	faces []kernel.FaceID
}

func (f *sexpFaces) SexpString(ps *zygo.PrintState) string {
	names := make([]string, len(f.faces))
	for i, id := range f.faces {
		names[i] = id.String()
	}
	return fmt.Sprintf("(%s %s)", f.kind, strings.Join(names, " "))
}
func (f *sexpFaces) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// unknownKeys reports the first keyword not in allowed.
func (a kwArgs) unknownKeys(allowed ...string) error {
	for k := range a.kw {
		found := false
		for _, name := range allowed {
			if k == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown keyword :%s", k)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// floatKW reads an optional numeric keyword into dst.
func (a kwArgs) floatKW(key string, dst *float64) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// vecKW reads an optional vector keyword into dst.
func (a kwArgs) vecKW(key string, dst *v3.Vec) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = vec
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// modelState is what the builtins of one evaluation build up.
type modelState struct {
	builder *brep.Builder
	name    string
	patch   weld.ParameterPatch
}

func newModelState() *modelState {
	return &modelState{builder: brep.NewBuilder()}
}

// registerBuiltins installs the model DSL into a zygomys environment. The
// builtins add geometry to st.builder and parameter overrides to st.patch.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, st *modelState) {
	builtins := map[string]zygo.ZlispUserFunction{
		"vec3":        st.vec3,
		"face":        st.face,
		"plate":       st.plate,
		"plate_pair":  st.platePair,
		"box":         st.box,
		"prism":       st.prism,
		"cylinder":    st.cylinder,
		"shape":       st.shape,
		"noise_floor": st.noiseFloor,
	}
	for _, t := range []weld.Type{weld.Fillet, weld.Butt, weld.Lap, weld.Corner} {
		builtins[strings.ToLower(t.String())] = st.thresholds(t)
	}
	for name, fn := range builtins {
		env.AddFunction(name, fn)
	}
}

// (vec3 1 2 3)
func (st *modelState) vec3(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	var c [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		f, err := toFloat64(args[i])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
		}
		c[i] = f
	}
	return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
}

// (face (vec3 0 0 0) (vec3 10 0 0) (vec3 10 10 0) ...)
func (st *modelState) face(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) < 3 {
		return zygo.SexpNull, fmt.Errorf("face requires at least 3 points, got %d", len(args))
	}
	pts := make([]v3.Vec, len(args))
	for i, a := range args {
		p, err := toVec3(a)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: point %d: %w", i+1, err)
		}
		pts[i] = p
	}
	return &sexpFaces{kind: "face", faces: []kernel.FaceID{st.builder.Polygon(pts...)}}, nil
}

// (plate :at (vec3 0 0 0) :u (vec3 50 0 0) :v (vec3 0 20 0))
func (st *modelState) plate(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if err := pa.unknownKeys("at", "u", "v"); err != nil {
		return zygo.SexpNull, fmt.Errorf("plate: %w", err)
	}
	var at, u, v v3.Vec
	for key, dst := range map[string]*v3.Vec{"at": &at, "u": &u, "v": &v} {
		if err := pa.vecKW(key, dst); err != nil {
			return zygo.SexpNull, fmt.Errorf("plate: %w", err)
		}
	}
	if u.Cross(v).Length() == 0 {
		return zygo.SexpNull, fmt.Errorf("plate: :u and :v must span a plane")
	}
	id := st.builder.Polygon(at, at.Add(u), at.Add(u).Add(v), at.Add(v))
	return &sexpFaces{kind: "plate", faces: []kernel.FaceID{id}}, nil
}

// (plate-pair :length 50 :width 20 :angle 90)
func (st *modelState) platePair(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if err := pa.unknownKeys("length", "width", "angle"); err != nil {
		return zygo.SexpNull, fmt.Errorf("plate-pair: %w", err)
	}
	length, width, angle := 0.0, 0.0, 90.0
	for key, dst := range map[string]*float64{"length": &length, "width": &width, "angle": &angle} {
		if err := pa.floatKW(key, dst); err != nil {
			return zygo.SexpNull, fmt.Errorf("plate-pair: %w", err)
		}
	}
	if length <= 0 || width <= 0 {
		return zygo.SexpNull, fmt.Errorf("plate-pair: :length and :width must be positive")
	}
	if angle <= 0 || angle > 180 {
		return zygo.SexpNull, fmt.Errorf("plate-pair: :angle must be in (0, 180], got %g", angle)
	}
	ids := st.builder.PlatePair(length, width, angle)
	return &sexpFaces{kind: "plate-pair", faces: ids[:]}, nil
}

// (box :min (vec3 0 0 0) :max (vec3 100 50 6))
func (st *modelState) box(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if err := pa.unknownKeys("min", "max"); err != nil {
		return zygo.SexpNull, fmt.Errorf("box: %w", err)
	}
	var lo, hi v3.Vec
	if err := pa.vecKW("min", &lo); err != nil {
		return zygo.SexpNull, fmt.Errorf("box: %w", err)
	}
	if err := pa.vecKW("max", &hi); err != nil {
		return zygo.SexpNull, fmt.Errorf("box: %w", err)
	}
	if hi.X <= lo.X || hi.Y <= lo.Y || hi.Z <= lo.Z {
		return zygo.SexpNull, fmt.Errorf("box: :max must exceed :min on every axis")
	}
	return &sexpFaces{kind: "box", faces: st.builder.Box(lo, hi)}, nil
}

// (prism :profile (list (vec3 0 0 0) ...) :z 0 :height 25)
func (st *modelState) prism(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if err := pa.unknownKeys("profile", "z", "height"); err != nil {
		return zygo.SexpNull, fmt.Errorf("prism: %w", err)
	}
	raw, ok := pa.kw["profile"]
	if !ok {
		return zygo.SexpNull, fmt.Errorf("prism: :profile is required")
	}
	items, err := sexpListToSlice(raw)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("prism: profile: %w", err)
	}
	if len(items) < 3 {
		return zygo.SexpNull, fmt.Errorf("prism: profile needs at least 3 points, got %d", len(items))
	}
	profile := make([]v3.Vec, len(items))
	for i, it := range items {
		if profile[i], err = toVec3(it); err != nil {
			return zygo.SexpNull, fmt.Errorf("prism: profile point %d: %w", i+1, err)
		}
	}
	var z, height float64
	if err := pa.floatKW("z", &z); err != nil {
		return zygo.SexpNull, fmt.Errorf("prism: %w", err)
	}
	if err := pa.floatKW("height", &height); err != nil {
		return zygo.SexpNull, fmt.Errorf("prism: %w", err)
	}
	if height <= 0 {
		return zygo.SexpNull, fmt.Errorf("prism: :height must be positive")
	}
	return &sexpFaces{kind: "prism", faces: st.builder.Prism(profile, z, height)}, nil
}

// (cylinder :base (vec3 0 0 0) :radius 5 :height 20)
func (st *modelState) cylinder(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if err := pa.unknownKeys("base", "radius", "height"); err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
	}
	var base v3.Vec
	var radius, height float64
	if err := pa.vecKW("base", &base); err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
	}
	for key, dst := range map[string]*float64{"radius": &radius, "height": &height} {
		if err := pa.floatKW(key, dst); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
	}
	if radius <= 0 || height <= 0 {
		return zygo.SexpNull, fmt.Errorf("cylinder: :radius and :height must be positive")
	}
	return &sexpFaces{kind: "cylinder", faces: st.builder.Cylinder(base, radius, height)}, nil
}

// (shape "bracket" (box ...) (plate ...))
func (st *modelState) shape(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) < 1 {
		return zygo.SexpNull, fmt.Errorf("shape requires a name argument")
	}
	n, err := toString(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("shape: name: %w", err)
	}
	for i, a := range args[1:] {
		if _, ok := a.(*sexpFaces); !ok {
			return zygo.SexpNull, fmt.Errorf("shape: child %d: expected geometry, got %T (%s)",
				i+1, a, a.SexpString(nil))
		}
	}
	st.name = n
	return &zygo.SexpStr{S: n}, nil
}

// (noise-floor 0.5)
func (st *modelState) noiseFloor(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return zygo.SexpNull, fmt.Errorf("noise-floor requires exactly 1 argument, got %d", len(args))
	}
	f, err := toFloat64(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("noise-floor: %w", err)
	}
	st.patch.NoiseFloor = &f
	return zygo.SexpNull, nil
}

// thresholdKeys maps DSL keywords to TypePatch fields.
var thresholdKeys = []struct {
	key   string
	field func(tp *weld.TypePatch) **float64
}{
	{"min-angle", func(tp *weld.TypePatch) **float64 { return &tp.MinAngle }},
	{"max-angle", func(tp *weld.TypePatch) **float64 { return &tp.MaxAngle }},
	{"min-length", func(tp *weld.TypePatch) **float64 { return &tp.MinLength }},
	{"optimal-angle", func(tp *weld.TypePatch) **float64 { return &tp.OptimalAngle }},
	{"min-plate-thickness", func(tp *weld.TypePatch) **float64 { return &tp.MinPlateThickness }},
	{"max-plate-thickness", func(tp *weld.TypePatch) **float64 { return &tp.MaxPlateThickness }},
}

// thresholds builds the (fillet :min-angle 60 ...) family. Repeated calls
// merge; later values win.
func (st *modelState) thresholds(t weld.Type) zygo.ZlispUserFunction {
	label := strings.ToLower(t.String())
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		allowed := make([]string, len(thresholdKeys))
		for i, k := range thresholdKeys {
			allowed[i] = k.key
		}
		if err := pa.unknownKeys(allowed...); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
		}
		tp := st.typePatch(t)
		for _, k := range thresholdKeys {
			var f float64
			if _, ok := pa.kw[k.key]; !ok {
				continue
			}
			if err := pa.floatKW(k.key, &f); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			*k.field(tp) = &f
		}
		return zygo.SexpNull, nil
	}
}

func (st *modelState) typePatch(t weld.Type) *weld.TypePatch {
	var slot **weld.TypePatch
	switch t {
	case weld.Fillet:
		slot = &st.patch.Fillet
	case weld.Butt:
		slot = &st.patch.Butt
	case weld.Lap:
		slot = &st.patch.Lap
	default:
		slot = &st.patch.Corner
	}
	if *slot == nil {
		*slot = &weld.TypePatch{}
	}
	return *slot
}
