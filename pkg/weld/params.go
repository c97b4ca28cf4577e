package weld

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrParameterValidation is returned for a parameter set that cannot be
// used. The message names the offending parameter.
var ErrParameterValidation = errors.New("weld: invalid parameters")

// AngleTolerance widens every angle comparison, in degrees, so values a
// rounding error away from a bound classify like the bound itself.
const AngleTolerance = 1e-6

// TypeParams are the thresholds of one weld type. Angles are in degrees,
// lengths and thicknesses in model units (mm).
type TypeParams struct {
	MinAngle          float64 `json:"min_angle" yaml:"min_angle" toml:"min_angle" validate:"gte=0,lte=180"`
	MaxAngle          float64 `json:"max_angle" yaml:"max_angle" toml:"max_angle" validate:"gte=0,lte=180,gtefield=MinAngle"`
	MinLength         float64 `json:"min_length" yaml:"min_length" toml:"min_length" validate:"gte=0"`
	OptimalAngle      float64 `json:"optimal_angle" yaml:"optimal_angle" toml:"optimal_angle" validate:"gtefield=MinAngle,ltefield=MaxAngle"`
	MinPlateThickness float64 `json:"min_plate_thickness" yaml:"min_plate_thickness" toml:"min_plate_thickness" validate:"gte=0"`
	MaxPlateThickness float64 `json:"max_plate_thickness" yaml:"max_plate_thickness" toml:"max_plate_thickness" validate:"gtefield=MinPlateThickness"`
}

// HasThicknessRange reports whether plate thickness limits are set.
func (t TypeParams) HasThicknessRange() bool { return t.MaxPlateThickness > 0 }

// Parameters is the complete threshold configuration of one analysis run.
// It is a value type: a run copies it once and never sees later updates.
type Parameters struct {
	Fillet     TypeParams `json:"fillet" yaml:"fillet" toml:"fillet"`
	Butt       TypeParams `json:"butt" yaml:"butt" toml:"butt"`
	Lap        TypeParams `json:"lap" yaml:"lap" toml:"lap"`
	Corner     TypeParams `json:"corner" yaml:"corner" toml:"corner"`
	NoiseFloor float64    `json:"noise_floor" yaml:"noise_floor" toml:"noise_floor" validate:"gte=0"`
}

// DefaultNoiseFloor is the shortest edge considered for classification.
const DefaultNoiseFloor = 0.5

// DefaultParameters returns the stock thresholds.
func DefaultParameters() Parameters {
	return Parameters{
		Fillet: TypeParams{
			MinAngle:          60,
			MaxAngle:          120,
			MinLength:         5,
			OptimalAngle:      90,
			MinPlateThickness: 1,
			MaxPlateThickness: 50,
		},
		Butt: TypeParams{
			MinAngle:     150,
			MaxAngle:     180,
			MinLength:    5,
			OptimalAngle: 180,
		},
		Lap: TypeParams{
			MinAngle:     0,
			MaxAngle:     30,
			MinLength:    10,
			OptimalAngle: 0,
		},
		Corner: TypeParams{
			MinAngle:          70,
			MaxAngle:          110,
			MinLength:         10,
			OptimalAngle:      90,
			MinPlateThickness: 1,
			MaxPlateThickness: 50,
		},
		NoiseFloor: DefaultNoiseFloor,
	}
}

// For returns the thresholds of t. NotAWeld has none.
func (p Parameters) For(t Type) (TypeParams, bool) {
	switch t {
	case Fillet:
		return p.Fillet, true
	case Butt:
		return p.Butt, true
	case Lap:
		return p.Lap, true
	case Corner:
		return p.Corner, true
	}
	return TypeParams{}, false
}

// paramValidate is shared by every Validate call; validator caches struct
// metadata per instance.
var paramValidate *validator.Validate

func init() {
	paramValidate = validator.New()
	paramValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// Validate checks ranges and the ordering min_angle <= optimal_angle <=
// max_angle for every type.
func (p Parameters) Validate() error {
	err := paramValidate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrParameterValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrParameterValidation, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	name := fe.Namespace()
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	param := snake(fe.Param())
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be >= %s (got %v)", name, param, fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be <= %s (got %v)", name, param, fe.Value())
	case "gtefield":
		return fmt.Sprintf("%s must be >= %s (got %v)", name, param, fe.Value())
	case "ltefield":
		return fmt.Sprintf("%s must be <= %s (got %v)", name, param, fe.Value())
	}
	return fmt.Sprintf("%s failed %s", name, fe.Tag())
}

// snake turns a Go field name into its yaml key: MinAngle -> min_angle.
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TypePatch overrides individual thresholds of one type.
type TypePatch struct {
	MinAngle          *float64 `json:"min_angle,omitempty" yaml:"min_angle,omitempty" toml:"min_angle,omitempty"`
	MaxAngle          *float64 `json:"max_angle,omitempty" yaml:"max_angle,omitempty" toml:"max_angle,omitempty"`
	MinLength         *float64 `json:"min_length,omitempty" yaml:"min_length,omitempty" toml:"min_length,omitempty"`
	OptimalAngle      *float64 `json:"optimal_angle,omitempty" yaml:"optimal_angle,omitempty" toml:"optimal_angle,omitempty"`
	MinPlateThickness *float64 `json:"min_plate_thickness,omitempty" yaml:"min_plate_thickness,omitempty" toml:"min_plate_thickness,omitempty"`
	MaxPlateThickness *float64 `json:"max_plate_thickness,omitempty" yaml:"max_plate_thickness,omitempty" toml:"max_plate_thickness,omitempty"`
}

// ParameterPatch is a partial update: nil fields keep their current value.
type ParameterPatch struct {
	Fillet     *TypePatch `json:"fillet,omitempty" yaml:"fillet,omitempty" toml:"fillet,omitempty"`
	Butt       *TypePatch `json:"butt,omitempty" yaml:"butt,omitempty" toml:"butt,omitempty"`
	Lap        *TypePatch `json:"lap,omitempty" yaml:"lap,omitempty" toml:"lap,omitempty"`
	Corner     *TypePatch `json:"corner,omitempty" yaml:"corner,omitempty" toml:"corner,omitempty"`
	NoiseFloor *float64   `json:"noise_floor,omitempty" yaml:"noise_floor,omitempty" toml:"noise_floor,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (pp ParameterPatch) IsEmpty() bool {
	return pp.Fillet == nil && pp.Butt == nil && pp.Lap == nil && pp.Corner == nil && pp.NoiseFloor == nil
}

func (tp *TypePatch) apply(t TypeParams) TypeParams {
	if tp == nil {
		return t
	}
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&t.MinAngle, tp.MinAngle)
	set(&t.MaxAngle, tp.MaxAngle)
	set(&t.MinLength, tp.MinLength)
	set(&t.OptimalAngle, tp.OptimalAngle)
	set(&t.MinPlateThickness, tp.MinPlateThickness)
	set(&t.MaxPlateThickness, tp.MaxPlateThickness)
	return t
}

// Apply merges a patch into p and validates the result. p is unchanged
// when the merged set is invalid.
func (p Parameters) Apply(pp ParameterPatch) (Parameters, error) {
	out := p
	out.Fillet = pp.Fillet.apply(p.Fillet)
	out.Butt = pp.Butt.apply(p.Butt)
	out.Lap = pp.Lap.apply(p.Lap)
	out.Corner = pp.Corner.apply(p.Corner)
	if pp.NoiseFloor != nil {
		out.NoiseFloor = *pp.NoiseFloor
	}
	if err := out.Validate(); err != nil {
		return p, err
	}
	return out, nil
}
