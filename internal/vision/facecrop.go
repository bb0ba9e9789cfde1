package vision

import "context"

// faceCropIntermediateSize / faceCropOutputSize implement the reference
// FaceCropProvider: a tight bbox around the largest detected face,
// resized to 256x256, then center-cropped to 224x224. This is
// deliberately a coarser crop than the embedding path's full
// similarity-transform alignment — it only needs to frame the face for
// the quality/albedo/occlusion/liveness stages, not to register
// landmarks to sub-pixel precision.
const (
	faceCropIntermediateSize = 256
	faceCropOutputSize       = 224
)

// mtcnnFaceCropper is the default FaceCropProvider, built on the MTCNN
// cascade.
type mtcnnFaceCropper struct {
	detector *MTCNN
}

// NewFaceCropProvider wraps an MTCNN detector as the default
// FaceCropProvider.
func NewFaceCropProvider(detector *MTCNN) FaceCropProvider {
	return &mtcnnFaceCropper{detector: detector}
}

func (c *mtcnnFaceCropper) CropFace(ctx context.Context, im *Image) (*AlignedFace, error) {
	faces, err := c.detector.Detect(ctx, im)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, newError(ErrNoFaceDetected, "no face found in image", nil)
	}

	best := faces[0]
	bestArea := best.Box.Width() * best.Box.Height()
	for _, f := range faces[1:] {
		area := f.Box.Width() * f.Box.Height()
		if area > bestArea || (area == bestArea && f.Box.Score > best.Box.Score) {
			best, bestArea = f, area
		}
	}

	x1, y1 := int(best.Box.X1), int(best.Box.Y1)
	x2, y2 := int(best.Box.X2)+1, int(best.Box.Y2)+1
	crop, err := im.Crop(x1, y1, x2, y2)
	if err != nil {
		return nil, err
	}

	resized := crop.Resize(faceCropIntermediateSize, faceCropIntermediateSize)
	offset := (faceCropIntermediateSize - faceCropOutputSize) / 2
	centered, err := resized.Crop(offset, offset, offset+faceCropOutputSize, offset+faceCropOutputSize)
	if err != nil {
		return nil, err
	}

	return &AlignedFace{Image: centered, Box: best.Box, Landmarks: best.Landmarks}, nil
}

// EmbeddingFaceCropper extracts the 112x112 similarity-transform-aligned
// crop used by the embedding extractor, as distinct from the
// coarser bbox crop mtcnnFaceCropper produces for the liveness stages.
type EmbeddingFaceCropper struct {
	detector *MTCNN
}

// NewEmbeddingFaceCropper builds the embedding-path cropper.
func NewEmbeddingFaceCropper(detector *MTCNN) *EmbeddingFaceCropper {
	return &EmbeddingFaceCropper{detector: detector}
}

// Align detects the highest-scoring face in im and returns its 112x112
// similarity-transform-aligned crop.
func (c *EmbeddingFaceCropper) Align(ctx context.Context, im *Image) (*AlignedFace, error) {
	faces, err := c.detector.Detect(ctx, im)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, newError(ErrNoFaceDetected, "no face found in image", nil)
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if f.Box.Score > best.Box.Score {
			best = f
		}
	}

	aligned := AlignFace(im, best.Landmarks)
	return &AlignedFace{Image: aligned, Box: best.Box, Landmarks: best.Landmarks}, nil
}
