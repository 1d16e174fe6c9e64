package embeddings

// PadToTargetDimensions pads or truncates a vector to the target dimensions.
// Zero-padding is safe for cosine similarity because zero values do not
// affect the angle between vectors.
func PadToTargetDimensions(vec []float32, target int) []float32 {
	if len(vec) == target {
		return vec
	}

	if len(vec) > target {
		return vec[:target]
	}

	padded := make([]float32, target)
	copy(padded, vec)

	return padded
}

// ZeroVector returns an all-zero vector of the given dimensionality. It is
// the fallback embedding when every provider attempt fails: downstream
// consumers treat it as a valid, if uninformative, embedding.
func ZeroVector(dims int) []float32 {
	return make([]float32, dims)
}

// IsZero reports whether every component of the vector is zero.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}

	return true
}
