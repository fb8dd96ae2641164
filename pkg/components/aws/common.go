// Package aws contains the components which deploy to AWS.
package aws

import (
	"encoding/json"
	"fmt"

	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/dns"
	"github.com/klothoplatform/platform/pkg/link"
	"github.com/klothoplatform/platform/pkg/output"
)

const (
	provider = "aws"

	// cloudFrontZone is the hosted zone every CloudFront distribution is aliased through.
	cloudFrontZone = "Z2FDTNDATAQYW2"
)

type (
	// Domain is a custom domain for a component. Dns manages the records; without it, records must be created
	// by hand.
	Domain struct {
		Name string
		Dns  dns.Adapter
	}

	certificate struct {
		arn output.Output[string]
	}
)

func (d *Domain) validate() error {
	if d == nil {
		return nil
	}
	if d.Name == "" {
		return fmt.Errorf("domain name is required")
	}
	if d.Dns != nil {
		if _, err := dns.ValidateRecordName(d.Dns.Domain(), d.Name); err != nil {
			return err
		}
	}
	return nil
}

func (d *Domain) String() string {
	if d == nil {
		return ""
	}
	return d.Name
}

func resource(typ string, props construct.Properties, t *component.Transform) component.ResourceArgs {
	return component.ResourceArgs{Provider: provider, Type: typ, Properties: props, Transform: t}
}

// assumeRolePolicy allows the service principal to assume a role.
func assumeRolePolicy(service string) string {
	b, _ := json.Marshal(map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{map[string]any{
			"Effect":    "Allow",
			"Principal": map[string]any{"Service": service},
			"Action":    "sts:AssumeRole",
		}},
	})
	return string(b)
}

// newCertificate requests an ACM certificate for the domain, validated with DNS records when the domain has an
// adapter.
func newCertificate(c *component.Component, domain *Domain, t *component.Transform) (*certificate, error) {
	cert, err := c.AddResource("certificate", resource("acm_certificate", construct.Properties{
		"domainName":       domain.Name,
		"validationMethod": "DNS",
		"region":           "us-east-1",
	}, t))
	if err != nil {
		return nil, err
	}
	if domain.Dns == nil {
		return &certificate{arn: c.Attr(cert, "arn")}, nil
	}

	if _, err := domain.Dns.CreateCaa(c, "caa", domain.Name); err != nil {
		return nil, err
	}
	record, err := domain.Dns.CreateRecord(c, "validation", dns.Record{
		Name:  c.Attr(cert, "domainValidationOptions[0].resourceRecordName"),
		Type:  dns.CNAME,
		Value: c.Attr(cert, "domainValidationOptions[0].resourceRecordValue"),
	})
	if err != nil {
		return nil, err
	}
	args := resource("acm_certificate_validation", construct.Properties{
		"certificateArn": c.Attr(cert, "arn"),
	}, nil)
	args.Options.DependsOn = []construct.ResourceId{record.ID}
	validation, err := c.AddResource("certificate-validation", args)
	if err != nil {
		return nil, err
	}
	return &certificate{arn: c.Attr(validation, "certificateArn")}, nil
}

// linkOf is the shared shape of a Link implementation: properties plus an allow on the given resources.
func linkOf(props map[string]any, actions []string, resources ...output.Output[string]) *link.Definition {
	def := &link.Definition{Properties: props}
	if len(actions) > 0 && len(resources) > 0 {
		def.Include = []link.Permission{link.AllowPermission(actions, resources...)}
	}
	return def
}
