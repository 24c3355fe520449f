package venstar

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// SetMode changes the operating mode. The device requires every /control
// post to carry both setpoints, so the current cached pair is re-sent.
func (c *Client) SetMode(ctx context.Context, mode int) error {
	if mode < ModeOff || mode > ModeAuto {
		return fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}

	info, err := c.currentInfo()
	if err != nil {
		return err
	}

	return c.postControl(ctx, mode, info.Fan, info.HeatTemp, info.CoolTemp)
}

// SetFan changes the fan setting (FanAuto or FanOn).
func (c *Client) SetFan(ctx context.Context, fan int) error {
	if fan != FanAuto && fan != FanOn {
		return fmt.Errorf("%w: %d", ErrInvalidFan, fan)
	}

	info, err := c.currentInfo()
	if err != nil {
		return err
	}

	return c.postControl(ctx, info.Mode, fan, info.HeatTemp, info.CoolTemp)
}

// SetSetpoints changes the heat and cool setpoints as a pair, keeping the
// current mode and fan setting. In AUTO mode the pair must honour the
// device's minimum separation.
func (c *Client) SetSetpoints(ctx context.Context, heatTemp, coolTemp float64) error {
	info, err := c.currentInfo()
	if err != nil {
		return err
	}

	if info.Mode == ModeAuto && coolTemp-heatTemp < info.SetpointDelta {
		return fmt.Errorf("%w: heat=%.1f cool=%.1f delta=%.1f",
			ErrSetpointDelta, heatTemp, coolTemp, info.SetpointDelta)
	}

	return c.postControl(ctx, info.Mode, info.Fan, heatTemp, coolTemp)
}

// SetAway switches the device between home and away.
func (c *Client) SetAway(ctx context.Context, away bool) error {
	if !c.loggedIn() {
		return ErrNotLoggedIn
	}

	value := AwayHome
	if away {
		value = AwayAway
	}

	values := url.Values{}
	values.Set("away", strconv.Itoa(value))
	if err := c.postForm(ctx, "/settings", values); err != nil {
		return err
	}

	c.mu.Lock()
	if c.info != nil {
		c.info.Away = value
	}
	c.mu.Unlock()

	return nil
}

// SetSchedule enables (1) or disables (0) the programmed schedule.
// Disabling the schedule while home puts the device in a temperature hold.
func (c *Client) SetSchedule(ctx context.Context, schedule int) error {
	if !c.loggedIn() {
		return ErrNotLoggedIn
	}

	values := url.Values{}
	values.Set("schedule", strconv.Itoa(schedule))
	if err := c.postForm(ctx, "/settings", values); err != nil {
		return err
	}

	c.mu.Lock()
	if c.info != nil {
		c.info.Schedule = schedule
	}
	c.mu.Unlock()

	return nil
}

// SetHumSetpoint changes the humidification setpoint (0-60 percent).
// Fails with ErrNoHumidifier when the device reports no humidifier.
func (c *Client) SetHumSetpoint(ctx context.Context, setpoint int) error {
	info, err := c.currentInfo()
	if err != nil {
		return err
	}

	if info.HumSetpoint == nil {
		return ErrNoHumidifier
	}

	values := url.Values{}
	values.Set("hum_setpoint", strconv.Itoa(setpoint))
	if err := c.postForm(ctx, "/settings", values); err != nil {
		return err
	}

	c.mu.Lock()
	if c.info != nil {
		c.info.HumSetpoint = &setpoint
	}
	c.mu.Unlock()

	return nil
}

// currentInfo returns the cached /query/info, failing when the client has
// not logged in or polled yet. Control posts need the cached values to
// fill the mandatory mode/fan/setpoint fields.
func (c *Client) currentInfo() (*Info, error) {
	if !c.loggedIn() {
		return nil, ErrNotLoggedIn
	}

	info := c.Info()
	if info == nil {
		return nil, fmt.Errorf("%w: no info polled yet", ErrNotLoggedIn)
	}

	return info, nil
}

// postControl sends the full /control tuple and updates the cache on success.
func (c *Client) postControl(ctx context.Context, mode, fan int, heatTemp, coolTemp float64) error {
	values := url.Values{}
	values.Set("mode", strconv.Itoa(mode))
	values.Set("fan", strconv.Itoa(fan))
	values.Set("heattemp", formatTemp(heatTemp))
	values.Set("cooltemp", formatTemp(coolTemp))

	if err := c.postForm(ctx, "/control", values); err != nil {
		return err
	}

	c.mu.Lock()
	if c.info != nil {
		c.info.Mode = mode
		c.info.Fan = fan
		c.info.HeatTemp = heatTemp
		c.info.CoolTemp = coolTemp
	}
	c.mu.Unlock()

	return nil
}

// formatTemp renders a temperature for the form API. The device accepts
// half-degree values; whole numbers are sent without a decimal point.
func formatTemp(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
