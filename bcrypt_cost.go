//go:build !race

package grants

func passwordHashCost() int {
	return 14
}
