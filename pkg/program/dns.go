package program

import (
	"fmt"
	"reflect"

	"github.com/klothoplatform/platform/pkg/dns"
	dnsaws "github.com/klothoplatform/platform/pkg/dns/aws"
	"github.com/klothoplatform/platform/pkg/dns/cloudflare"
	"github.com/klothoplatform/platform/pkg/dns/vercel"
	"github.com/mitchellh/mapstructure"
)

var adapterType = reflect.TypeOf((*dns.Adapter)(nil)).Elem()

// dnsAdapterHook creates the adapter described by a map such as `{provider: cloudflare, domain: example.com}`. The
// remaining keys are the provider's args.
func dnsAdapterHook(from, to reflect.Type, data any) (any, error) {
	if to != adapterType || from.Implements(adapterType) {
		return data, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("dns must be a map with a provider, got %T", data)
	}
	provider, _ := m["provider"].(string)
	args := make(map[string]any, len(m))
	for k, v := range m {
		if k != "provider" {
			args[k] = v
		}
	}

	switch provider {
	case "aws":
		var a dnsaws.Args
		if err := decodeStrict(args, &a); err != nil {
			return nil, err
		}
		return dnsaws.New(a)
	case "cloudflare":
		var a cloudflare.Args
		if err := decodeStrict(args, &a); err != nil {
			return nil, err
		}
		return cloudflare.New(a)
	case "vercel":
		var a vercel.Args
		if err := decodeStrict(args, &a); err != nil {
			return nil, err
		}
		return vercel.New(a)
	}
	return nil, fmt.Errorf("unknown dns provider %q (must be one of aws, cloudflare, vercel)", provider)
}

func decodeStrict(input map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
