package geo

// Locatable is anything with a position.
type Locatable interface {
	Coordinates() Point
}

// Nearest scans refs and returns the entry closest to p with its distance in
// kilometres. The scan is exact; the first entry wins on equal distance.
// ok is false when refs is empty.
func Nearest[T Locatable](refs []T, p Point) (best T, distance float64, ok bool) {
	for i, ref := range refs {
		d := Haversine(p, ref.Coordinates())
		if i == 0 || d < distance {
			best, distance, ok = ref, d, true
		}
	}
	return best, distance, ok
}
