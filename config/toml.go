package config

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	cmtconfig "github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/libs/os"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

var appTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("appFileTemplate").Funcs(template.FuncMap{
		"StringsJoin": strings.Join,
	})
	if appTemplate, err = tmpl.Parse(defaultAppTemplate); err != nil {
		panic(err)
	}
}

// WriteConfigFiles writes config.toml through cometbft and app.toml from the
// embedded template.
func WriteConfigFiles(configFilePath, appFilePath string, config *Config) {
	cmtconfig.WriteConfigFile(configFilePath, config.Config)
	WriteAppConfigFile(appFilePath, config)
}

func WriteAppConfigFile(appFilePath string, config *Config) {
	var buffer bytes.Buffer

	if err := appTemplate.Execute(&buffer, config); err != nil {
		panic(err)
	}

	os.MustWriteFile(appFilePath, buffer.Bytes(), 0o644)
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go.
//
//go:embed app.toml.tpl
var defaultAppTemplate string
