package config

// injected configurations
var (
	APP_NAME    string = "brewery-docstore"
	APP_VERSION string = "0.0.1"
)

// value changed by paramaters from config
var (
	BREWERY_TABLE     string = "default"
	BREWERY_CHUNKSIZE int    = 32000
	BREWERY_DATADIR   string = "./docstore-data"
)
