package config

import (
	"os"
	"strings"

	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/logger"
	"go.uber.org/zap"
)

// varSuffix marks option keys whose value names an environment variable
const varSuffix = "_var"

// UserVarName returns the environment variable holding the connection's user name
func (d DBMSConfig) UserVarName() string {
	if d.UserVar != "" {
		return d.UserVar
	}
	return strings.ToUpper(d.Name) + "_USER"
}

// PasswordVarName returns the environment variable holding the connection's password
func (d DBMSConfig) PasswordVarName() string {
	if d.PasswordVar != "" {
		return d.PasswordVar
	}
	return strings.ToUpper(d.Name) + "_PW"
}

// Credentials reads the user name and password from the environment.
// An explicitly configured user_var that is unset is an error; an unset
// password only logs a warning.
func (d DBMSConfig) Credentials() (user, password string, err error) {
	userVar := d.UserVarName()
	user, ok := os.LookupEnv(userVar)
	if !ok && d.UserVar != "" {
		return "", "", errors.New(errors.ErrorTypeAuthentication, "user name environment variable "+userVar+" not set").
			WithDetail("connection", d.Name)
	}

	pwVar := d.PasswordVarName()
	password, ok = os.LookupEnv(pwVar)
	if !ok && (user != "" || d.PasswordVar != "") {
		logger.Warn("password environment variable not set",
			zap.String("connection", d.Name),
			zap.String("variable", pwVar))
	}
	return user, password, nil
}

// ConnectOptions returns the connection options with "_var" keys resolved:
// a key "token_var: MY_TOKEN" becomes "token: <value of $MY_TOKEN>". Keys whose
// variable is unset are kept as they are.
func (d DBMSConfig) ConnectOptions() (map[string]string, error) {
	raw, err := StringOptions(d.Options)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid connection option").
			WithDetail("connection", d.Name)
	}

	out := make(map[string]string, len(raw))
	for key, value := range raw {
		if !strings.HasSuffix(key, varSuffix) {
			out[key] = value
			continue
		}
		envValue, ok := os.LookupEnv(value)
		if !ok {
			logger.Warn("environment variable not set, leaving option as is",
				zap.String("connection", d.Name),
				zap.String("option", key),
				zap.String("variable", value))
			out[key] = value
			continue
		}
		out[strings.TrimSuffix(key, varSuffix)] = envValue
	}
	return out, nil
}
