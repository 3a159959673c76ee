package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAABB_Intersect(t *testing.T) {
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))

	tests := []struct {
		name  string
		ray   Ray
		hit   bool
		tnear float64
		tfar  float64
	}{
		{
			name:  "Straight through along Y",
			ray:   NewRay(NewVec3(0, 5, 0), NewVec3(0, -1, 0)),
			hit:   true,
			tnear: 4,
			tfar:  6,
		},
		{
			name:  "Unnormalized direction scales t",
			ray:   NewRay(NewVec3(0, 5, 0), NewVec3(0, -2, 0)),
			hit:   true,
			tnear: 2,
			tfar:  3,
		},
		{
			name: "Parallel ray outside slab",
			ray:  NewRay(NewVec3(5, 5, 5), NewVec3(0, -1, 0)),
			hit:  false,
		},
		{
			name:  "Origin inside box",
			ray:   NewRay(NewVec3(0, 0, 0), NewVec3(1, 0, 0)),
			hit:   true,
			tnear: -1,
			tfar:  1,
		},
		{
			name: "Pointing away",
			ray:  NewRay(NewVec3(3, 0, 0), NewVec3(1, 1, 0)),
			hit:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tnear, tfar := box.Intersect(tt.ray)
			require.False(t, math.IsNaN(tnear) || math.IsNaN(tfar))
			if !tt.hit {
				require.False(t, tnear < tfar && tfar > 0, "expected miss, got [%v, %v]", tnear, tfar)
				return
			}
			require.InDelta(t, tt.tnear, tnear, 1e-12)
			require.InDelta(t, tt.tfar, tfar, 1e-12)
		})
	}
}

func TestAABB_IntersectOnSlabPlane(t *testing.T) {
	// Origin exactly on a slab boundary with a zero direction component must
	// not produce 0/0.
	box := NewAABB(NewVec3(0, 0, 0), NewVec3(1, 1, 1))
	tnear, tfar := box.Intersect(NewRay(NewVec3(0, 2, 0.5), NewVec3(0, -1, 0)))
	require.InDelta(t, 1.0, tnear, 1e-12)
	require.InDelta(t, 2.0, tfar, 1e-12)
}

func TestAABB_SizeAndExpand(t *testing.T) {
	box := NewAABB(NewVec3(-1, 0, 0), NewVec3(1, 3, 4))
	require.Equal(t, NewVec3(2, 3, 4), box.Size())

	grown := box.Expand(0.5)
	require.Equal(t, NewVec3(-1.5, -0.5, -0.5), grown.Min)
	require.Equal(t, NewVec3(1.5, 3.5, 4.5), grown.Max)
}

func TestNewAABBFromPoints(t *testing.T) {
	box := NewAABBFromPoints(NewVec3(1, -2, 3), NewVec3(-1, 4, 0), NewVec3(0, 0, 5))
	require.Equal(t, NewVec3(-1, -2, 0), box.Min)
	require.Equal(t, NewVec3(1, 4, 5), box.Max)
	require.Equal(t, AABB{}, NewAABBFromPoints())
}
