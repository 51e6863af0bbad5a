package model

// DownloadConditions constrains when a model transfer may run.
type DownloadConditions struct {
	// AllowsCellularAccess permits transfers over metered networks.
	AllowsCellularAccess bool `json:"allows_cellular_access"`
	// AllowsBackgroundDownloading permits a transfer to continue after the
	// requesting caller has gone away.
	AllowsBackgroundDownloading bool `json:"allows_background_downloading"`
}

// DefaultDownloadConditions returns the default policy: cellular allowed,
// background downloading disallowed.
func DefaultDownloadConditions() DownloadConditions {
	return DownloadConditions{
		AllowsCellularAccess:        true,
		AllowsBackgroundDownloading: false,
	}
}
