package aws

import (
	"fmt"
	"strings"

	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/dns"
	"github.com/klothoplatform/platform/pkg/link"
	"github.com/klothoplatform/platform/pkg/output"
)

const EmailType = "aws:Email"

const (
	defaultDmarc = "v=DMARC1; p=none;"
	dkimTokens   = 3
)

type (
	EmailArgs struct {
		// Sender is an email address or a domain.
		Sender string
		// Dns creates the verification records for a domain sender.
		Dns dns.Adapter
		// Dmarc is the DMARC policy for a domain sender.
		Dmarc string
		// Region the SES identity is in, used for the MAIL FROM MX record.
		Region string

		Transform struct {
			Identity  *component.Transform
			ConfigSet *component.Transform
		}
	}

	Email struct {
		*component.Component
		sender    string
		identity  *construct.Resource
		configSet *construct.Resource
	}
)

var _ link.Linkable = (*Email)(nil)

func isEmailAddress(sender string) bool {
	return strings.Contains(sender, "@")
}

func NewEmail(stack *component.Stack, name string, args EmailArgs, opts ...component.Option) (*Email, error) {
	switch {
	case args.Sender == "":
		return nil, fmt.Errorf("invalid email %s: sender is required", name)
	case isEmailAddress(args.Sender) && args.Dns != nil:
		return nil, fmt.Errorf("invalid email %s: dns can only be set when the sender is a domain", name)
	case args.Dns != nil:
		if _, err := dns.ValidateRecordName(args.Dns.Domain(), args.Sender); err != nil {
			return nil, fmt.Errorf("invalid email %s: %w", name, err)
		}
	}
	c, err := component.New(stack, EmailType, name, opts...)
	if err != nil {
		return nil, err
	}
	e := &Email{Component: c, sender: args.Sender}

	e.configSet, err = c.AddResource("config", resource("sesv2_configuration_set", construct.Properties{
		"configurationSetName": c.PhysicalName("config", 64),
	}, args.Transform.ConfigSet))
	if err != nil {
		return nil, err
	}
	e.identity, err = c.AddResource("identity", resource("sesv2_email_identity", construct.Properties{
		"emailIdentity":        args.Sender,
		"configurationSetName": e.ConfigSet(),
	}, args.Transform.Identity))
	if err != nil {
		return nil, err
	}

	if !isEmailAddress(args.Sender) && args.Dns != nil {
		if err := e.createDomainRecords(args); err != nil {
			return nil, err
		}
	}
	if err := c.RegisterOutputs(map[string]any{"sender": args.Sender}); err != nil {
		return nil, err
	}
	return e, nil
}

// createDomainRecords verifies the domain with DKIM and sets up DMARC and a custom MAIL FROM domain.
func (e *Email) createDomainRecords(args EmailArgs) error {
	domain := args.Sender
	for i := 0; i < dkimTokens; i++ {
		token := e.Attr(e.identity, fmt.Sprintf("dkimSigningAttributes.tokens[%d]", i))
		if _, err := args.Dns.CreateRecord(e.Component, fmt.Sprintf("dkim-%d", i), dns.Record{
			Name:  output.Format("%s._domainkey.%s", token, domain),
			Type:  dns.CNAME,
			Value: output.Format("%s.dkim.amazonses.com", token),
		}); err != nil {
			return err
		}
	}

	if _, err := args.Dns.CreateRecord(e.Component, "dmarc", dns.Record{
		Name:  output.Of("_dmarc." + domain),
		Type:  dns.TXT,
		Value: output.Of(orDefault(args.Dmarc, defaultDmarc)),
	}); err != nil {
		return err
	}

	mailFrom := "mail." + domain
	if _, err := e.AddResource("mail-from", resource("sesv2_email_identity_mail_from_attributes", construct.Properties{
		"emailIdentity":  e.Attr(e.identity, "emailIdentity"),
		"mailFromDomain": mailFrom,
	}, nil)); err != nil {
		return err
	}
	if _, err := args.Dns.CreateRecord(e.Component, "mail-from-mx", dns.Record{
		Name:  output.Of(mailFrom),
		Type:  dns.MX,
		Value: output.Of(fmt.Sprintf("10 feedback-smtp.%s.amazonses.com", orDefault(args.Region, "us-east-1"))),
	}); err != nil {
		return err
	}
	_, err := args.Dns.CreateRecord(e.Component, "mail-from-spf", dns.Record{
		Name:  output.Of(mailFrom),
		Type:  dns.TXT,
		Value: output.Of("v=spf1 include:amazonses.com ~all"),
	})
	return err
}

func (e *Email) Sender() string                      { return e.sender }
func (e *Email) ConfigSet() output.Output[string]    { return e.Attr(e.configSet, "configurationSetName") }
func (e *Email) IdentityArn() output.Output[string]  { return e.Attr(e.identity, "arn") }
func (e *Email) ConfigSetArn() output.Output[string] { return e.Attr(e.configSet, "arn") }

func (e *Email) LinkName() string { return e.Name() }

func (e *Email) Link() (*link.Definition, error) {
	return linkOf(
		map[string]any{"sender": e.sender, "configSet": e.ConfigSet()},
		[]string{"ses:*"},
		e.IdentityArn(), e.ConfigSetArn(),
	), nil
}
