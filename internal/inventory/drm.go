package inventory

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/monify-labs/hostwatch/pkg/models"
)

const defaultDRMRoot = "/sys/class/drm"

// readDRMDisplays lists connected connectors (card0-HDMI-A-1, ...) with
// their preferred mode. The first connected connector is reported as main.
func readDRMDisplays(root string) ([]models.Display, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var connectors []string
	for _, entry := range entries {
		if name, ok := connectorName(entry.Name()); ok && name != "" {
			connectors = append(connectors, entry.Name())
		}
	}
	sort.Strings(connectors)

	displays := []models.Display{}
	for _, connector := range connectors {
		path := filepath.Join(root, connector)
		status, err := os.ReadFile(filepath.Join(path, "status"))
		if err != nil || strings.TrimSpace(string(status)) != "connected" {
			continue
		}

		name, _ := connectorName(connector)
		display := models.Display{
			Name:       name,
			Resolution: models.Unavailable,
			Scale:      1,
			Main:       len(displays) == 0,
		}
		if mode := preferredMode(filepath.Join(path, "modes")); mode != "" {
			if width, height, ok := parseDimensions(mode); ok {
				display.Resolution = formatDimensions(width, height)
			}
		}
		displays = append(displays, display)
	}
	return displays, nil
}

// connectorName strips the "cardN-" prefix; ok is false for card and
// render nodes that are not connectors
func connectorName(entry string) (string, bool) {
	if !strings.HasPrefix(entry, "card") {
		return "", false
	}
	dash := strings.Index(entry, "-")
	if dash <= len("card") {
		return "", false
	}
	for _, c := range entry[4:dash] {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return entry[dash+1:], true
}

func preferredMode(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}
