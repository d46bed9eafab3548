package scene

import "github.com/gogpu/voxview/compute"

// Kind discriminates the object variants held by the registry.
type Kind uint8

const (
	// KindVolume is a sparse voxel grid.
	KindVolume Kind = iota + 1

	// KindArray is a raw typed array.
	KindArray

	// KindSplats is a Gaussian splat point set.
	KindSplats

	// KindImage is a 2D image.
	KindImage
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindVolume:
		return "volume"
	case KindArray:
		return "array"
	case KindSplats:
		return "splats"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// VolumeGrid is a serialized sparse voxel grid with its voxel count.
// The grid buffer holds the on-disk grid layout verbatim.
type VolumeGrid struct {
	Grid       *compute.Buffer
	VoxelCount uint64
}

// SplatSet is the attribute buffer set of a Gaussian splat point cloud.
// All attribute buffers describe the same PointCount points. SHN may be
// nil when the cloud carries only the DC spherical harmonics band.
type SplatSet struct {
	Means       *compute.Buffer
	Opacities   *compute.Buffer
	Quaternions *compute.Buffer
	Scales      *compute.Buffer
	SH0         *compute.Buffer
	SHN         *compute.Buffer
	PointCount  uint64
}

// Image2D is a 2D image with explicit dimensions.
type Image2D struct {
	Data   *compute.Buffer
	Width  uint32
	Height uint32
}

// Object is one registered scene object. Exactly one variant field is
// set, matching Kind. An Object is immutable once published to the
// registry; updates replace the whole object.
type Object struct {
	Kind Kind

	Volume *VolumeGrid
	Array  *compute.Buffer
	Splats *SplatSet
	Image  *Image2D
}

// Valid reports whether the object's variant matches its kind.
func (o Object) Valid() bool {
	switch o.Kind {
	case KindVolume:
		return o.Volume != nil && o.Volume.Grid != nil
	case KindArray:
		return o.Array != nil
	case KindSplats:
		return o.Splats != nil && o.Splats.Means != nil
	case KindImage:
		return o.Image != nil && o.Image.Data != nil
	default:
		return false
	}
}
