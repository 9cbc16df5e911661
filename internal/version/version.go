package version

import (
	"encoding/json"
	"log"
	"os"
)

type Info struct {
	Version string `json:"version"`
}

// Load reads version.json next to the binary. STAGEVAULT_VERSION overrides
// it so container builds can stamp the version through the environment.
func Load() Info {
	if v := os.Getenv("STAGEVAULT_VERSION"); v != "" {
		return Info{Version: v}
	}
	data, err := os.ReadFile("version.json")
	if err != nil {
		return Info{Version: "0.0.0"}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		log.Printf("warning: could not parse version.json: %v", err)
		return Info{Version: "0.0.0"}
	}
	return info
}
