package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nandanugg/mallfence/module/core/domain"
)

type geofenceFile struct {
	Geofences []domain.Geofence `yaml:"geofences"`
}

// LoadGeofences reads manual geofences from a YAML seed file:
//
//	geofences:
//	  - id: hq
//	    name: Head office
//	    center: {latitude: -6.2088, longitude: 106.8456}
//	    radius_meters: 150
func LoadGeofences(path string) ([]domain.Geofence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geofences: %w", err)
	}

	var f geofenceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse geofences: %w", err)
	}

	for i, g := range f.Geofences {
		if g.ID == "" {
			return nil, fmt.Errorf("geofence %d: id: required", i)
		}
		if !(g.Radius > 0) {
			return nil, fmt.Errorf("geofence %s: %w", g.ID, domain.ErrInvalidGeofence)
		}
		if g.Source == "" {
			f.Geofences[i].Source = domain.SourceManual
		}
	}
	return f.Geofences, nil
}
