package scene

import (
	"sort"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/df07/go-ocean-raytracer/pkg/core"
)

// ErrTypeUnknownScene tags lookups of scenes that do not exist.
const ErrTypeUnknownScene = "unknown_scene"

var presets = map[string]func() Config{
	"ocean": DefaultConfig,
	"calm": func() Config {
		c := DefaultConfig()
		c.Name = "calm"
		c.Description = "Light wind and a high sun"
		c.Waves.WindSpeed = 4
		c.Waves.Seed = 7
		c.Sky.Preetham.SunDirection = core.NewVec3(-0.3, 1, -0.6)
		return c
	},
	"overcast": func() Config {
		c := DefaultConfig()
		c.Name = "overcast"
		c.Description = "Rough sea under a grey sky"
		c.Waves.WindSpeed = 20
		c.Waves.Seed = 3
		c.HeightScale = 1.5
		c.Sky.Preetham.Turbidity = 6
		c.Sky.Preetham.Overcast = 0.8
		return c
	},
	"flat": func() Config {
		c := DefaultConfig()
		c.Name = "flat"
		c.Description = "A mirror-flat sea under a gradient sky"
		c.Surface = SurfaceFlat
		c.Sky.Kind = SkyGradient
		return c
	},
}

// PresetNames lists the built-in scenes in alphabetical order
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigForPreset returns a fresh copy of a built-in scene
func ConfigForPreset(name string) (Config, error) {
	preset, ok := presets[name]
	if !ok {
		return Config{}, errors.Newf("unknown scene %q", name).
			WithType(ErrTypeUnknownScene).
			WithTag("scene", name)
	}
	return preset(), nil
}
