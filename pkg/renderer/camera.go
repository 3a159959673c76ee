package renderer

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/df07/go-ocean-raytracer/pkg/core"
)

// ErrTypeInvalidCamera tags errors caused by an unusable camera setup.
const ErrTypeInvalidCamera = "invalid_camera"

// CameraConfig describes a pinhole camera
type CameraConfig struct {
	LookFrom core.Vec3 `json:"lookFrom"`
	LookAt   core.Vec3 `json:"lookAt"`
	Up       core.Vec3 `json:"up"`
	VFov     float64   `json:"vfov"` // Vertical field of view in degrees
}

// Validate checks that the camera has a well defined orientation
func (c CameraConfig) Validate() error {
	w := c.LookFrom.Subtract(c.LookAt)
	switch {
	case !(c.VFov > 0 && c.VFov < 180):
		return errors.New("vertical field of view must be in (0, 180) degrees").
			WithType(ErrTypeInvalidCamera).
			WithTag("vfov", c.VFov)
	case w.LengthSquared() == 0:
		return errors.New("camera looks at its own position").
			WithType(ErrTypeInvalidCamera).
			WithTag("look_from", c.LookFrom)
	case c.Up.Cross(w).LengthSquared() == 0:
		return errors.New("camera up vector is parallel to the view direction").
			WithType(ErrTypeInvalidCamera).
			WithTag("up", c.Up)
	}
	return nil
}

// Camera generates primary rays through the pixels of an image
type Camera struct {
	origin        core.Vec3
	upperLeft     core.Vec3
	horizontal    core.Vec3
	vertical      core.Vec3
	width, height int
}

// NewCamera creates a look-at camera for an image of the given size
func NewCamera(config CameraConfig, width, height int) (*Camera, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("image size must be positive").
			WithType(ErrTypeInvalidCamera).
			WithTag("width", width).
			WithTag("height", height)
	}

	aspectRatio := float64(width) / float64(height)
	theta := config.VFov * math.Pi / 180
	viewportHeight := 2 * math.Tan(theta/2)
	viewportWidth := aspectRatio * viewportHeight

	w := config.LookFrom.Subtract(config.LookAt).Normalize()
	u := config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	horizontal := u.Multiply(viewportWidth)
	vertical := v.Multiply(viewportHeight)
	upperLeft := config.LookFrom.
		Subtract(horizontal.Multiply(0.5)).
		Add(vertical.Multiply(0.5)).
		Subtract(w)

	return &Camera{
		origin:     config.LookFrom,
		upperLeft:  upperLeft,
		horizontal: horizontal,
		vertical:   vertical,
		width:      width,
		height:     height,
	}, nil
}

// GetRay returns a ray through pixel (i, j), with j = 0 the top row. The
// sampler picks the position inside the pixel.
func (c *Camera) GetRay(i, j int, sampler core.Sampler) core.Ray {
	offset := sampler.Get2D()
	s := (float64(i) + offset.X) / float64(c.width)
	t := (float64(j) + offset.Y) / float64(c.height)

	direction := c.upperLeft.
		Add(c.horizontal.Multiply(s)).
		Subtract(c.vertical.Multiply(t)).
		Subtract(c.origin)

	return core.NewRay(c.origin, direction)
}

// Size returns the image size the camera was built for
func (c *Camera) Size() (int, int) {
	return c.width, c.height
}
