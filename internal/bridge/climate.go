package bridge

import (
	"fmt"

	"github.com/nerrad567/venstar-bridge/internal/venstar"
)

// Climate entity vocabulary published to the platform.
const (
	HVACModeOff  = "off"
	HVACModeHeat = "heat"
	HVACModeCool = "cool"
	HVACModeAuto = "auto"

	ActionIdle    = "idle"
	ActionHeating = "heating"
	ActionCooling = "cooling"
	ActionOff     = "off"

	FanModeAuto = "auto"
	FanModeOn   = "on"

	PresetNone = "none"
	PresetAway = "away"
	// PresetTemperature is the hold state: home with the schedule disabled.
	PresetTemperature = "temperature"

	UnitFahrenheit = "F"
	UnitCelsius    = "C"
)

// HVACModeToDevice converts a platform mode string to the device value.
func HVACModeToDevice(mode string) (int, error) {
	switch mode {
	case HVACModeOff:
		return venstar.ModeOff, nil
	case HVACModeHeat:
		return venstar.ModeHeat, nil
	case HVACModeCool:
		return venstar.ModeCool, nil
	case HVACModeAuto:
		return venstar.ModeAuto, nil
	default:
		return 0, fmt.Errorf("unknown hvac mode: %q", mode)
	}
}

// HVACModeFromDevice converts a device mode value to the platform string.
// Unknown values map to "off", matching the device's fallback behaviour.
func HVACModeFromDevice(mode int) string {
	switch mode {
	case venstar.ModeHeat:
		return HVACModeHeat
	case venstar.ModeCool:
		return HVACModeCool
	case venstar.ModeAuto:
		return HVACModeAuto
	default:
		return HVACModeOff
	}
}

// ActionFromDevice converts the equipment state to the platform action.
// Lockout and error states report as "off".
func ActionFromDevice(state int) string {
	switch state {
	case venstar.StateIdle:
		return ActionIdle
	case venstar.StateHeating:
		return ActionHeating
	case venstar.StateCooling:
		return ActionCooling
	default:
		return ActionOff
	}
}

// FanModeFromDevice converts the device fan setting to the platform string.
func FanModeFromDevice(fan int) string {
	if fan == venstar.FanOn {
		return FanModeOn
	}
	return FanModeAuto
}

// PresetFromDevice derives the preset from the away flag and schedule.
// Away wins over hold: an away device reports "away" even with the
// schedule disabled.
func PresetFromDevice(away, schedule int) string {
	if away == venstar.AwayAway {
		return PresetAway
	}
	if schedule == 0 {
		return PresetTemperature
	}
	return PresetNone
}

// TemperatureUnit converts the device tempunits value to a unit symbol.
func TemperatureUnit(tempUnits int) string {
	if tempUnits == venstar.TempUnitsC {
		return UnitCelsius
	}
	return UnitFahrenheit
}

// BuildClimateState builds the climate entity state from a polled info
// snapshot. Target temperature follows the mode: a single setpoint in heat
// or cool, a low/high pair in auto, none when off.
func BuildClimateState(info venstar.Info, humidifier bool) map[string]any {
	state := map[string]any{
		"name":                info.Name,
		"hvac_mode":           HVACModeFromDevice(info.Mode),
		"action":              ActionFromDevice(info.State),
		"fan_mode":            FanModeFromDevice(info.Fan),
		"fan_state":           info.FanState,
		"hvac_state":          info.State,
		"preset":              PresetFromDevice(info.Away, info.Schedule),
		"temperature_unit":    TemperatureUnit(info.TempUnits),
		"current_temperature": info.SpaceTemp,
	}

	switch info.Mode {
	case venstar.ModeHeat:
		state["target_temperature"] = info.HeatTemp
	case venstar.ModeCool:
		state["target_temperature"] = info.CoolTemp
	case venstar.ModeAuto:
		state["target_temperature_low"] = info.HeatTemp
		state["target_temperature_high"] = info.CoolTemp
	}

	if info.Humidity != nil {
		state["current_humidity"] = *info.Humidity
	}
	if humidifier && info.HumSetpoint != nil {
		state["target_humidity"] = *info.HumSetpoint
	}

	return state
}
