package bridge

import (
	"testing"

	"github.com/nerrad567/venstar-bridge/internal/venstar"
)

func TestHVACModeToDevice(t *testing.T) {
	tests := []struct {
		mode    string
		want    int
		wantErr bool
	}{
		{"off", venstar.ModeOff, false},
		{"heat", venstar.ModeHeat, false},
		{"cool", venstar.ModeCool, false},
		{"auto", venstar.ModeAuto, false},
		{"eco", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got, err := HVACModeToDevice(tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HVACModeToDevice(%q) error = %v, wantErr %v", tt.mode, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("HVACModeToDevice(%q) = %d, want %d", tt.mode, got, tt.want)
			}
		})
	}
}

func TestHVACModeFromDevice_UnknownMapsToOff(t *testing.T) {
	if got := HVACModeFromDevice(99); got != HVACModeOff {
		t.Errorf("HVACModeFromDevice(99) = %q, want %q", got, HVACModeOff)
	}
}

func TestActionFromDevice(t *testing.T) {
	tests := []struct {
		state int
		want  string
	}{
		{venstar.StateIdle, ActionIdle},
		{venstar.StateHeating, ActionHeating},
		{venstar.StateCooling, ActionCooling},
		{venstar.StateLockout, ActionOff},
		{venstar.StateError, ActionOff},
	}

	for _, tt := range tests {
		if got := ActionFromDevice(tt.state); got != tt.want {
			t.Errorf("ActionFromDevice(%d) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestPresetFromDevice(t *testing.T) {
	tests := []struct {
		name     string
		away     int
		schedule int
		want     string
	}{
		{"home on schedule", venstar.AwayHome, 1, PresetNone},
		{"home holding", venstar.AwayHome, 0, PresetTemperature},
		{"away", venstar.AwayAway, 1, PresetAway},
		{"away wins over hold", venstar.AwayAway, 0, PresetAway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PresetFromDevice(tt.away, tt.schedule); got != tt.want {
				t.Errorf("PresetFromDevice(%d, %d) = %q, want %q", tt.away, tt.schedule, got, tt.want)
			}
		})
	}
}

func TestBuildClimateState_TargetsFollowMode(t *testing.T) {
	info := venstar.Info{
		Name:      "Hallway",
		State:     venstar.StateHeating,
		Fan:       venstar.FanAuto,
		SpaceTemp: 71.5,
		HeatTemp:  70,
		CoolTemp:  76,
	}

	t.Run("heat", func(t *testing.T) {
		info.Mode = venstar.ModeHeat
		state := BuildClimateState(info, false)
		if state["target_temperature"] != 70.0 {
			t.Errorf("target_temperature = %v, want 70", state["target_temperature"])
		}
		if _, ok := state["target_temperature_low"]; ok {
			t.Error("heat mode published a low/high pair")
		}
	})

	t.Run("cool", func(t *testing.T) {
		info.Mode = venstar.ModeCool
		state := BuildClimateState(info, false)
		if state["target_temperature"] != 76.0 {
			t.Errorf("target_temperature = %v, want 76", state["target_temperature"])
		}
	})

	t.Run("auto", func(t *testing.T) {
		info.Mode = venstar.ModeAuto
		state := BuildClimateState(info, false)
		if state["target_temperature_low"] != 70.0 || state["target_temperature_high"] != 76.0 {
			t.Errorf("auto targets = %v/%v, want 70/76",
				state["target_temperature_low"], state["target_temperature_high"])
		}
		if _, ok := state["target_temperature"]; ok {
			t.Error("auto mode published a single target")
		}
	})

	t.Run("off", func(t *testing.T) {
		info.Mode = venstar.ModeOff
		state := BuildClimateState(info, false)
		if _, ok := state["target_temperature"]; ok {
			t.Error("off mode published a target")
		}
	})
}

func TestBuildClimateState_RawEquipmentState(t *testing.T) {
	info := venstar.Info{Mode: venstar.ModeHeat, State: venstar.StateLockout}

	state := BuildClimateState(info, false)
	// Action collapses lockout to "off"; hvac_state keeps the device value
	// so lockout and error are still visible downstream.
	if state["action"] != ActionOff {
		t.Errorf("action = %v, want %q", state["action"], ActionOff)
	}
	if state["hvac_state"] != venstar.StateLockout {
		t.Errorf("hvac_state = %v, want %d", state["hvac_state"], venstar.StateLockout)
	}
}

func TestBuildClimateState_Humidity(t *testing.T) {
	hum := 45
	setpoint := 35
	info := venstar.Info{
		Mode:        venstar.ModeHeat,
		Humidity:    &hum,
		HumSetpoint: &setpoint,
	}

	state := BuildClimateState(info, false)
	if state["current_humidity"] != 45 {
		t.Errorf("current_humidity = %v, want 45", state["current_humidity"])
	}
	if _, ok := state["target_humidity"]; ok {
		t.Error("target_humidity published without humidifier configured")
	}

	state = BuildClimateState(info, true)
	if state["target_humidity"] != 35 {
		t.Errorf("target_humidity = %v, want 35", state["target_humidity"])
	}
}

func TestBuildClimateState_NoHumiditySupport(t *testing.T) {
	state := BuildClimateState(venstar.Info{Mode: venstar.ModeOff}, true)
	if _, ok := state["current_humidity"]; ok {
		t.Error("current_humidity published for a device without humidity")
	}
	if _, ok := state["target_humidity"]; ok {
		t.Error("target_humidity published for a device without humidity")
	}
}
