package version

// Version is the app-global version string, which should be substituted with a
// real value during build
var Version = "UNKNOWN"

// AppName is a name of a service
// should be in sync with Makefile
var AppName = "minibank"

// GitHash injected build time (see Makefile)
var GitHash = "TBD"
