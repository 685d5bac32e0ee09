/*
   SDCtl - flight computer SD card tool
   Copyright (c) 2022, CU InSpace

   This file is part of SDCtl.

   SDCtl is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   SDCtl is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with SDCtl. If not, see <http://www.gnu.org/licenses/>.
*/

package run

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SDCTL"

const runnerHelpEpilogue = `- Settings can also be given via environment variables, named after the long
  form of the option, upper case, with SDCTL_ prefix and dashes replaced by
  underscores, e.g. SDCTL_LOG_LEVEL. Alternatively, they can be set in a YAML
  config file, passed via --config or found as sdctl.yaml in the working
  directory. Command line options take precedence over environment variables,
  which take precedence over config file settings.

`

//
type setting struct {
	name     string
	env      string
	ref      interface{}
	required bool
}

/*
	Runner is the base of all sdctl commands. A command embeds a Runner,
	declares its settings with AddSetting, and calls ParseSettings at the
	start of its Run function, after which all setting fields hold their
	final values.
*/
type Runner struct {
	cobra.Command
	//
	LogLevel string
	Config   string
	//
	viper    *viper.Viper
	settings []*setting
	exec     func() error
}

//
func NewRunner(use, short, long, helpPrologue, helpEpilogue string,
	exec func() error) *Runner {

	r := &Runner{
		Command: cobra.Command{
			Use:          use,
			Short:        short,
			Long:         helpPrologue + long,
			SilenceUsage: true,
		},
		viper: viper.New(),
		exec:  exec,
	}

	if helpEpilogue != "" {
		r.Command.SetHelpTemplate(r.Command.HelpTemplate() + "\n" +
			helpEpilogue)
	}

	r.Command.RunE = func(cmd *cobra.Command, args []string) error {
		return r.exec()
	}

	r.Command.Flags().SetNormalizeFunc(normalizeName)
	r.viper.SetEnvPrefix(envPrefix)

	return r
}

//
func (r *Runner) AddBaseSettings() {
	r.AddSetting(&r.LogLevel, "log-level", "l", "", "info",
		"log level; one of trace, debug, info, warn, error", false)
	r.AddSetting(&r.Config, "config", "c", "", "",
		"YAML config file", false)
}

/*
	AddSetting declares a setting backed by the field ref points to. It is
	available as command line option --name and -short, if short is given, and
	as environment variable env. If env is empty, the variable name is derived
	from name. dflt is the default value, nil means the zero value of the
	field's type.
*/
func (r *Runner) AddSetting(ref interface{}, name, short, env string,
	dflt interface{}, usage string, required bool) {

	flags := r.Command.Flags()

	switch v := ref.(type) {

	case *string:
		d, _ := dflt.(string)
		flags.StringVarP(v, name, short, d, usage)

	case *int:
		d, _ := dflt.(int)
		flags.IntVarP(v, name, short, d, usage)

	case *bool:
		d, _ := dflt.(bool)
		flags.BoolVarP(v, name, short, d, usage)

	case *[]string:
		d, _ := dflt.([]string)
		flags.StringSliceVarP(v, name, short, d, usage)

	default:
		panic(fmt.Sprintf("unsupported setting type for %s: %T", name, ref))
	}

	if required {
		if f := flags.Lookup(name); f != nil {
			f.Usage += " (required)"
		}
	}

	if err := r.viper.BindPFlag(name, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("cannot bind option %s: %v", name, err))
	}

	if env == "" {
		env = envName(name)
	}
	if err := r.viper.BindEnv(name, env); err != nil {
		panic(fmt.Sprintf("cannot bind environment variable %s: %v", env, err))
	}

	r.settings = append(r.settings, &setting{
		name: name, env: env, ref: ref, required: required})
}

//
func envName(setting string) string {
	return fmt.Sprintf("%s_%s", envPrefix,
		strings.ToUpper(strings.ReplaceAll(setting, "-", "_")))
}

// ParseSettings resolves all settings. It exits the process if a setting is
// invalid, or a required setting is missing.
func (r *Runner) ParseSettings() {
	if err := r.parseSettings(); err != nil {
		fmt.Fprintf(os.Stderr, "\n%v\n\n", err)
		r.Command.Usage()
		os.Exit(1)
	}
}

//
func (r *Runner) parseSettings() error {

	if err := r.readConfig(); err != nil {
		return err
	}

	for _, s := range r.settings {

		switch v := s.ref.(type) {
		case *string:
			*v = r.viper.GetString(s.name)
		case *int:
			*v = r.viper.GetInt(s.name)
		case *bool:
			*v = r.viper.GetBool(s.name)
		case *[]string:
			*v = r.viper.GetStringSlice(s.name)
		}

		if s.required && !r.IsSet(s.name) {
			return fmt.Errorf("missing required setting: %s", s.name)
		}
	}

	if r.LogLevel != "" {
		level, err := log.ParseLevel(r.LogLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
	}

	return nil
}

//
func (r *Runner) readConfig() error {

	file := r.viper.GetString("config")

	if file != "" {
		r.viper.SetConfigFile(file)
	} else {
		r.viper.SetConfigName("sdctl")
		r.viper.SetConfigType("yaml")
		r.viper.AddConfigPath(".")
	}

	if err := r.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("cannot read config: %v", err)
	}

	log.WithField("file", r.viper.ConfigFileUsed()).Debug("config loaded")
	return nil
}

// IsSet tells whether a setting was given on the command line, via the
// environment, or in the config file.
func (r *Runner) IsSet(name string) bool {
	if f := r.Command.Flags().Lookup(name); f != nil && f.Changed {
		return true
	}
	for _, s := range r.settings {
		if s.name == name {
			if _, ok := os.LookupEnv(s.env); ok {
				return true
			}
		}
	}
	return r.viper.InConfig(name)
}

// normalizeName lets options be given with underscores as well, as they appear
// in environment variables.
func normalizeName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// apiCall calls the API of an sdctl server at address. The returned reader
// needs to be closed by the caller.
func apiCall(address, method, path string, json bool,
	body io.Reader) (io.ReadCloser, error) {

	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	req, err := http.NewRequest(method, address+path, body)
	if err != nil {
		return nil, err
	}

	if json {
		req.Header.Set("Accept", "application/json")
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := ioutil.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s: %s", resp.Status,
			strings.TrimSpace(string(msg)))
	}

	return resp.Body, nil
}
