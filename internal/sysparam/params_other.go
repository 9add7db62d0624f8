//go:build !darwin && !linux

package sysparam

func readString(name string) (string, bool) {
	return "", false
}

func readInt(name string) (int64, bool) {
	return 0, false
}
