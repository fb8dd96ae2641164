// Package cloudflare is the Cloudflare DNS adapter.
package cloudflare

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/dns"
	"github.com/klothoplatform/platform/pkg/output"
)

type (
	Args struct {
		Domain string
		// ZoneId of the domain. When empty, the zone is looked up by the domain's name and its parents.
		ZoneId string
		// Proxy routes aliased traffic through Cloudflare.
		Proxy bool
	}

	adapter struct {
		args Args

		mu   sync.Mutex
		zone *output.Output[string]
	}
)

var _ dns.Adapter = (*adapter)(nil)

func New(args Args) (dns.Adapter, error) {
	if args.Domain == "" {
		return nil, errors.New("domain is required")
	}
	return &adapter{args: args}, nil
}

func (a *adapter) Provider() string { return "cloudflare" }
func (a *adapter) Domain() string   { return a.args.Domain }

// zoneNames are the names the domain's zone may be registered under, most specific first: the domain and each
// parent down to two labels, eg `app.example.co.uk`, `example.co.uk`, `co.uk`.
func zoneNames(domain string) []any {
	labels := strings.Split(strings.TrimSuffix(domain, "."), ".")
	if len(labels) <= 2 {
		return []any{strings.Join(labels, ".")}
	}
	names := make([]any, 0, len(labels)-1)
	for i := 0; i < len(labels)-1; i++ {
		names = append(names, strings.Join(labels[i:], "."))
	}
	return names
}

func (a *adapter) zoneId(parent *component.Component) (output.Output[string], error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.zone != nil {
		return *a.zone, nil
	}
	if a.args.ZoneId != "" {
		z := output.Of(a.args.ZoneId)
		a.zone = &z
		return z, nil
	}
	lookup, err := parent.AddResource("zone", component.ResourceArgs{
		Provider:   "cloudflare",
		Type:       "zone_lookup",
		// the lookup picks the first name Cloudflare has a zone for
		Properties: construct.Properties{"names": zoneNames(a.args.Domain)},
	})
	if err != nil {
		return output.Output[string]{}, err
	}
	z := parent.Attr(lookup, "id")
	a.zone = &z
	return z, nil
}

func (a *adapter) record(
	parent *component.Component,
	node string,
	name any,
	t dns.RecordType,
	value any,
	extra construct.Properties,
) (*construct.Resource, error) {
	zone, err := a.zoneId(parent)
	if err != nil {
		return nil, err
	}
	props := construct.Properties{
		"zoneId": zone,
		"name":   name,
		"type":   string(t),
		"ttl":    dns.DefaultTTL,
	}
	if value != nil {
		props["value"] = value
	}
	for k, v := range extra {
		props[k] = v
	}
	return parent.AddResource(node, component.ResourceArgs{
		Provider:   "cloudflare",
		Type:       "record",
		Properties: props,
	})
}

// CreateAlias creates a CNAME. Cloudflare flattens CNAMEs at the apex so no ALIAS type is needed.
func (a *adapter) CreateAlias(parent *component.Component, namePrefix string, record dns.AliasRecord) ([]*construct.Resource, error) {
	name, err := dns.ValidateRecordName(a.args.Domain, record.Name)
	if err != nil {
		return nil, err
	}
	r, err := a.record(parent, dns.NodeName(namePrefix, dns.CNAME), name, dns.CNAME, record.AliasName, construct.Properties{
		"proxied":        a.args.Proxy,
		"allowOverwrite": true,
	})
	if err != nil {
		return nil, err
	}
	return []*construct.Resource{r}, nil
}

func (a *adapter) CreateCaa(parent *component.Component, namePrefix string, recordName string) ([]*construct.Resource, error) {
	name, err := dns.ValidateRecordName(a.args.Domain, recordName)
	if err != nil {
		return nil, err
	}
	var records []*construct.Resource
	for i, ca := range dns.AmazonCAs {
		r, err := a.record(parent, dns.NodeName(namePrefix, dns.CAA, strconv.Itoa(i)), name, dns.CAA, nil, construct.Properties{
			"data": map[string]any{
				"flags": "0",
				"tag":   "issue",
				"value": ca,
			},
		})
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (a *adapter) CreateRecord(parent *component.Component, namePrefix string, record dns.Record) (*construct.Resource, error) {
	if err := record.Type.Validate(); err != nil {
		return nil, err
	}
	name, err := dns.CheckRecordName(a.args.Domain, record.Name)
	if err != nil {
		return nil, err
	}
	value := record.Value
	if record.Type == dns.TXT {
		value = output.Apply(value, quoteTxt)
	}
	return a.record(parent, dns.NodeName(namePrefix, record.Type), name, record.Type, value, nil)
}

// quoteTxt wraps TXT values in quotes, which Cloudflare otherwise warns about.
func quoteTxt(v string) (string, error) {
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) >= 2 {
		return v, nil
	}
	return fmt.Sprintf("%q", v), nil
}
