package utils

import (
	"fmt"
	"log"

	"github.com/beyondbrewing/brewery-docstore/config"
	"github.com/spf13/viper"
)

func ImportEnv() {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Panicln(fmt.Errorf("fatal error config file: %s", err))
		}
	}

	if v := viper.GetString("BREWERY_TABLE"); v != "" {
		config.BREWERY_TABLE = v
	}
	if v := viper.GetInt("BREWERY_CHUNKSIZE"); v > 0 {
		config.BREWERY_CHUNKSIZE = v
	}
	if v := viper.GetString("BREWERY_DATADIR"); v != "" {
		config.BREWERY_DATADIR = v
	}
}
