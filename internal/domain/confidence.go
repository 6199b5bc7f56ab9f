package domain

// Clamp bounds a confidence value to [0, 1].
func Clamp(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// PropagatedDelta computes the confidence delta a neighbor receives when a
// source claim's confidence moves by delta. Influence decays multiplicatively
// with both the fixed decay factor and the similarity score, so it falls off
// geometrically with semantic distance.
func PropagatedDelta(delta, decay, similarity float64) float64 {
	return delta * decay * similarity
}

// EffectiveConfidence computes an argument's confidence dampened by its fact
// dependencies: confidence × Π((1 − strength) + strength × factConfidence).
// With no dependencies the multiplier is 1 and the result equals confidence.
// A fully trusted fact (confidence 1) contributes nothing; a fully refuted
// fact with strength 1 zeroes the argument out.
func EffectiveConfidence(confidence float64, deps []FactDependency) float64 {
	multiplier := 1.0
	for _, d := range deps {
		multiplier *= (1 - d.DependencyStrength) + d.DependencyStrength*d.FactConfidence
	}
	return Clamp(confidence * multiplier)
}
