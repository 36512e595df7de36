package params

const (
	// ParamsKeyGlobal stores the engine-wide configuration.
	ParamsKeyGlobal = "system/global"
)
