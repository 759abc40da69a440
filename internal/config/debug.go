package config

import "os"

func IsDebug() bool {
	return os.Getenv("CONVKEEP_DEBUG") == "1"
}
