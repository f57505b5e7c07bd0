// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "clinmap")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/")
	viper.SetDefault("main.log.maxsize", 100)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("classifier.trees", 100)
	viper.SetDefault("classifier.seed", 42)

	viper.SetDefault("storage.uploadpath", "uploads/")
	viper.SetDefault("storage.modelpath", "models/")
	viper.SetDefault("storage.knowledgedb", "knowledge.db")
	viper.SetDefault("storage.exportedname", "updated_odm.xml")
}
