package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"
	"github.com/strangergwenn/orbital"
	"github.com/strangergwenn/orbital/sim"
)

// scenario is a session to run, read from a TOML file.
type scenario struct {
	start           time.Time
	duration        time.Duration
	fleet           orbital.Fleet
	names           map[string]uuid.UUID
	groups          []sim.Group
	areas           []sim.Area
	player          uuid.UUID
	transfer        []uuid.UUID
	destination     orbital.Orbit
	phasingAltitude float64
}

// parseJDEorTime reads a date as a Julian date or an RFC3339 time.
func parseJDEorTime(s string) (time.Time, error) {
	var jde float64
	if _, err := fmt.Sscanf(s, "%g", &jde); err == nil && !strings.ContainsAny(s, "-:T") {
		return julian.JDToTime(jde), nil
	}
	dt, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not understand date `%s`: %w", s, err)
	}
	return dt.UTC(), nil
}

func confReadJDEorTime(v *viper.Viper, key string) (time.Time, error) {
	if jde := v.GetFloat64(key); jde != 0 {
		return julian.JDToTime(jde), nil
	}
	return parseJDEorTime(v.GetString(key))
}

// loadScenario reads a scenario file around the provided body.
func loadScenario(path string, body orbital.CelestialBody) (*scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	start, err := confReadJDEorTime(v, "scenario.start")
	if err != nil {
		return nil, err
	}
	sc := &scenario{
		start:    start,
		duration: v.GetDuration("scenario.duration"),
		fleet:    make(orbital.Fleet),
		names:    make(map[string]uuid.UUID),
	}

	// Spacecraft on the same orbit share an entry.
	groups := make(map[orbital.OrbitGeometry]int)
	for i := 0; v.IsSet(fmt.Sprintf("spacecraft.%d", i)); i++ {
		key := fmt.Sprintf("spacecraft.%d", i)
		name := v.GetString(key + ".name")
		if _, dup := sc.names[name]; dup || name == "" {
			return nil, fmt.Errorf("%s: invalid or duplicate name `%s`", key, name)
		}
		var thrusters []orbital.Thruster
		for _, thName := range v.GetStringSlice(key + ".thrusters") {
			th, ok := orbital.ThrusterFromString(thName)
			if !ok {
				return nil, fmt.Errorf("%s: unknown thruster `%s`", key, thName)
			}
			thrusters = append(thrusters, th)
		}
		craft := orbital.NewSpacecraft(name, v.GetFloat64(key+".dry"), v.GetFloat64(key+".propellant"), thrusters...)
		sc.fleet.Add(craft)
		sc.names[name] = craft.ID

		alt := v.GetFloat64(key + ".altitude")
		opposite := alt
		if v.IsSet(key + ".opposite") {
			opposite = v.GetFloat64(key + ".opposite")
		}
		g := orbital.NewEllipticalGeometry(body, alt, opposite, v.GetFloat64(key+".phase"))
		if !g.Valid() {
			return nil, fmt.Errorf("%s: invalid orbit %s", key, g)
		}
		pos, ok := groups[g]
		if !ok {
			pos = len(sc.groups)
			groups[g] = pos
			sc.groups = append(sc.groups, sim.Group{Orbit: orbital.NewOrbit(g, start)})
		}
		sc.groups[pos].IDs = append(sc.groups[pos].IDs, craft.ID)
	}
	if len(sc.fleet) == 0 {
		return nil, errors.New("no spacecraft in scenario")
	}

	for i := 0; v.IsSet(fmt.Sprintf("areas.%d", i)); i++ {
		key := fmt.Sprintf("areas.%d", i)
		g := orbital.NewCircularGeometry(body, v.GetFloat64(key+".altitude"), v.GetFloat64(key+".phase"))
		sc.areas = append(sc.areas, sim.Area{Name: v.GetString(key + ".name"), Orbit: orbital.NewOrbit(g, start)})
	}

	if name := v.GetString("scenario.player"); name != "" {
		id, ok := sc.names[name]
		if !ok {
			return nil, fmt.Errorf("unknown player `%s`", name)
		}
		sc.player = id
	}
	if v.IsSet("transfer") {
		for _, name := range v.GetStringSlice("transfer.spacecraft") {
			id, ok := sc.names[name]
			if !ok {
				return nil, fmt.Errorf("transfer: unknown spacecraft `%s`", name)
			}
			sc.transfer = append(sc.transfer, id)
		}
		g := orbital.NewCircularGeometry(body, v.GetFloat64("transfer.altitude"), v.GetFloat64("transfer.phase"))
		sc.destination = orbital.NewOrbit(g, start)
		sc.phasingAltitude = v.GetFloat64("transfer.phasing")
	}
	return sc, nil
}
