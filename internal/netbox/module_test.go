package netbox_test

import (
	"testing"

	"github.com/netcmd/netcmd/internal/netbox"
	"github.com/netcmd/netcmd/pkg/plugin"
	"github.com/netcmd/netcmd/pkg/plugin/plugintest"
)

func TestContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return netbox.New() }, nil)
}
