package version

var version = "development"

// LivOSVersion returns the version of the appliance, set by the build process
func LivOSVersion() string {
	return version
}
