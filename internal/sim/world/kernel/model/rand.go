package model

// Rand is the randomness source used by the simulation. *math/rand.Rand
// satisfies it; tests substitute scripted sequences.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}
