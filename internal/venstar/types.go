package venstar

// Operating mode values as used by the device API.
const (
	ModeOff  = 0
	ModeHeat = 1
	ModeCool = 2
	ModeAuto = 3
)

// Equipment state values reported in /query/info.
const (
	StateIdle    = 0
	StateHeating = 1
	StateCooling = 2
	StateLockout = 3
	StateError   = 4
)

// Fan setting values.
const (
	FanAuto = 0
	FanOn   = 1
)

// Away setting values.
const (
	AwayHome = 0
	AwayAway = 1
)

// Temperature unit values reported in /query/info.
const (
	TempUnitsF = 0
	TempUnitsC = 1
)

// minAPIVersion is the oldest firmware API this client speaks.
// Older firmware lacks /query/sensors and the paired setpoint contract.
const minAPIVersion = 3

// APIInfo is the response from the API root endpoint GET /.
type APIInfo struct {
	APIVer   int    `json:"api_ver"`
	Type     string `json:"type"`
	Model    string `json:"model"`
	Firmware string `json:"firmware"`
}

// Info is the response from GET /query/info.
//
// Temperatures are in the unit reported by TempUnits, with half-degree
// accuracy. Pointer fields are optional in older firmware or on devices
// without the relevant equipment.
type Info struct {
	Name          string  `json:"name"`
	Mode          int     `json:"mode"`
	State         int     `json:"state"`
	Fan           int     `json:"fan"`
	FanState      int     `json:"fanstate"`
	TempUnits     int     `json:"tempunits"`
	Schedule      int     `json:"schedule"`
	SchedulePart  int     `json:"schedulepart"`
	Away          int     `json:"away"`
	SpaceTemp     float64 `json:"spacetemp"`
	HeatTemp      float64 `json:"heattemp"`
	CoolTemp      float64 `json:"cooltemp"`
	SetpointDelta float64 `json:"setpointdelta"`
	Humidity      *int    `json:"hum,omitempty"`
	HumSetpoint   *int    `json:"hum_setpoint,omitempty"`
	HumActive     *int    `json:"hum_active,omitempty"`
	AvailableModes int    `json:"availablemodes"`
}

// Sensor is one entry from GET /query/sensors.
//
// The thermostat itself appears as a sensor (typically named "Thermostat");
// wireless remote sensors carry whatever subset of readings they support.
type Sensor struct {
	Name    string   `json:"name"`
	Temp    *float64 `json:"temp,omitempty"`
	Hum     *float64 `json:"hum,omitempty"`
	Battery *float64 `json:"battery,omitempty"`
	Type    string   `json:"type,omitempty"`
}

// sensorsResponse wraps GET /query/sensors.
type sensorsResponse struct {
	Sensors []Sensor `json:"sensors"`
}

// Runtime is one day's equipment runtimes from GET /query/runtimes.
// All values except TS are minutes of runtime for that equipment stage.
type Runtime struct {
	TS    int64 `json:"ts"`
	Heat1 *int  `json:"heat1,omitempty"`
	Heat2 *int  `json:"heat2,omitempty"`
	Cool1 *int  `json:"cool1,omitempty"`
	Cool2 *int  `json:"cool2,omitempty"`
	Aux1  *int  `json:"aux1,omitempty"`
	Aux2  *int  `json:"aux2,omitempty"`
	FC    *int  `json:"fc,omitempty"`
}

// Stages returns the named runtime values present in this record,
// in a stable order.
func (r Runtime) Stages() []RuntimeStage {
	var stages []RuntimeStage
	add := func(name string, v *int) {
		if v != nil {
			stages = append(stages, RuntimeStage{Name: name, Minutes: *v})
		}
	}
	add("heat1", r.Heat1)
	add("heat2", r.Heat2)
	add("cool1", r.Cool1)
	add("cool2", r.Cool2)
	add("aux1", r.Aux1)
	add("aux2", r.Aux2)
	add("fc", r.FC)
	return stages
}

// RuntimeStage is one equipment stage's runtime in minutes.
type RuntimeStage struct {
	Name    string
	Minutes int
}

// runtimesResponse wraps GET /query/runtimes.
type runtimesResponse struct {
	Runtimes []Runtime `json:"runtimes"`
}

// Alert is one entry from GET /query/alerts.
type Alert struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// alertsResponse wraps GET /query/alerts.
type alertsResponse struct {
	Alerts []Alert `json:"alerts"`
}

// controlResponse is the device's answer to /control and /settings posts.
type controlResponse struct {
	Success bool   `json:"success"`
	Error   bool   `json:"error"`
	Reason  string `json:"reason"`
}
