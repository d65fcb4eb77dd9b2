package version

// Version is the simulator version reported by --version.
const Version = "0.1.0"
