// Package autoload configures the global logger from the environment as a
// side effect of being imported.
//
//	import _ "github.com/Jamesonkanakulya/appointment-agent/pkg/logger/autoload"
package autoload

import (
	configx "github.com/Jamesonkanakulya/appointment-agent/pkg/config"
	logx "github.com/Jamesonkanakulya/appointment-agent/pkg/logger"
)

func init() {
	conf := configx.MustNew[logx.Config]("LOG")
	logx.Init(*conf)
}
