package resolve

import (
	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/errors"
)

// QueryService answers a service query by asking the client's provider and
// presenting the result through controlling.
func QueryService(controlling capability.Unknown, client capability.ServiceProvider, service, id capability.ID) (capability.Unknown, error) {
	if client == nil {
		return nil, errors.NotSupported(capability.Name(id), "no client service provider for "+capability.Name(service), nil)
	}

	raw, err := client.QueryService(service, id)
	if err != nil {
		return nil, errors.NotSupported(capability.Name(id), "client refused service "+capability.Name(service), err)
	}
	return NewShim(controlling, raw, id), nil
}
