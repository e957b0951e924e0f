package common

import (
	"os"

	"github.com/ryanuber/columnize"
	log "github.com/sirupsen/logrus"

	"sigmakit/internal/config"
)

func DoesFileExist(fileName string) bool {
	_, err := os.Stat(fileName)
	return err == nil
}

// LoadConfig reads path when it exists and falls back to conf otherwise.
func LoadConfig(path string, conf *config.Config) (*config.Config, error) {
	if path != "" && DoesFileExist(path) {
		c, err := config.Load(path)
		if err != nil {
			log.Infof("Config file parsing error")
			return nil, err
		}
		return c, nil
	}
	if err := conf.Verify(); err != nil {
		log.Infof("Params flag error %s", err)
		return nil, err
	}
	return conf, nil
}

func FormatKV(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = ""
	columnConf.Glue = " = "

	return columnize.Format(in, columnConf)
}

func FormatList(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = ""

	return columnize.Format(in, columnConf)
}
