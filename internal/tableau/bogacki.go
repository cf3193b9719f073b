package tableau

// BogackiShampine32 is the Bogacki-Shampine 3(2) pair: three working stages
// plus the trailing f(t1, y1) evaluation, third-order propagated solution
// with a second-order embedded estimate and a cubic Hermite dense output.
func BogackiShampine32() *Tableau {
	return &Tableau{
		Name:   "bs32",
		Order:  3,
		ErrOrd: 2,
		Stages: 3,
		C:      []float64{0, 1.0 / 2, 3.0 / 4},
		A: [][]float64{
			{},
			{1.0 / 2},
			{0, 3.0 / 4},
		},
		B: []float64{2.0 / 9, 1.0 / 3, 4.0 / 9},
		E: []float64{5.0 / 72, -1.0 / 12, -1.0 / 9, 1.0 / 8},
		Dense: [][]float64{
			{1, -4.0 / 3, 5.0 / 9},
			{0, 1, -2.0 / 3},
			{0, 4.0 / 3, -8.0 / 9},
			{0, -1, 1},
		},
	}
}
