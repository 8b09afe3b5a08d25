package redis

import "fmt"

const (
	// KeyPrefixDevice is the prefix for device record keys
	KeyPrefixDevice = "localdrop:device:"
	// KeyAllDevices is the key for the set of all device IDs
	KeyAllDevices = "localdrop:devices:all"
)

// DeviceKey returns the Redis key for a device record
func DeviceKey(id string) string {
	return KeyPrefixDevice + id
}

// AllDevicesKey returns the key for the set of all device IDs
func AllDevicesKey() string {
	return KeyAllDevices
}

// ExtractDeviceID extracts the device ID from a Redis key
func ExtractDeviceID(key string) (string, error) {
	if len(key) <= len(KeyPrefixDevice) {
		return "", fmt.Errorf("invalid device key: %s", key)
	}
	return key[len(KeyPrefixDevice):], nil
}
