// Package discovery finds ColorTouch thermostats on the local network.
//
// Thermostats answer SSDP searches for the "colortouch:ecp" target. Each
// response carries the device's API base URL in the location header and a
// USN packing the MAC address and URL-encoded device name. The Scanner
// searches periodically and publishes a retained discovery message for
// every device not already present in the bridge configuration, so an
// operator watching graylogic/discovery/venstar/# can pick up new
// thermostats without a network scan of their own.
//
// Discovery never auto-configures a device. Announced thermostats only
// join the fleet when added to the configuration file.
package discovery
