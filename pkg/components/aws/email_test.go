package aws

import (
	"testing"

	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/dns"
	"github.com/klothoplatform/platform/pkg/dns/dnstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestNewEmail_domain(t *testing.T) {
	assert := assert.New(t)
	s := newTestStack(t)
	ctrl := gomock.NewController(t)
	adapter := dnstest.NewMockAdapter(ctrl)

	records := make(map[string]dns.Record)
	adapter.EXPECT().Domain().Return("example.com").AnyTimes()
	adapter.EXPECT().
		CreateRecord(gomock.Any(), gomock.Any(), gomock.Any()).
		Times(6).
		DoAndReturn(func(parent *component.Component, namePrefix string, record dns.Record) (*construct.Resource, error) {
			assert.Equal("Mail", parent.Name())
			records[namePrefix] = record
			return &construct.Resource{}, nil
		})

	e, err := NewEmail(s, "Mail", EmailArgs{Sender: "mail.example.com", Dns: adapter, Region: "eu-west-1"})
	require.NoError(t, err)

	assert.Len(records, 6)
	for _, name := range []string{"dkim-0", "dkim-1", "dkim-2"} {
		require.Contains(t, records, name)
		assert.Equal(dns.CNAME, records[name].Type)
		assert.False(records[name].Name.IsKnown(), "dkim names wait for the identity's tokens")
	}
	assert.Equal(dns.TXT, records["dmarc"].Type)
	name, _, _ := records["dmarc"].Name.Value()
	assert.Equal("_dmarc.mail.example.com", name)
	value, _, _ := records["dmarc"].Value.Value()
	assert.Equal(defaultDmarc, value)

	mx, _, _ := records["mail-from-mx"].Value.Value()
	assert.Equal("10 feedback-smtp.eu-west-1.amazonses.com", mx)

	assert.Equal([]string{"config", "identity", "mail-from"}, e.NodeNames())
	identity := node(t, e, "identity")
	require.NoError(t, s.Provision(identity.ID, map[string]any{
		"arn":                             "arn:aws:ses:eu-west-1:123:identity/mail.example.com",
		"emailIdentity":                   "mail.example.com",
		"dkimSigningAttributes.tokens[0]": "aaa",
		"dkimSigningAttributes.tokens[1]": "bbb",
		"dkimSigningAttributes.tokens[2]": "ccc",
	}))
	dkim, known, err := records["dkim-1"].Name.Value()
	require.NoError(t, err)
	assert.True(known)
	assert.Equal("bbb._domainkey.mail.example.com", dkim)
}

func TestNewEmail_address(t *testing.T) {
	s := newTestStack(t)
	e, err := NewEmail(s, "Support", EmailArgs{Sender: "support@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"config", "identity"}, e.NodeNames())
	assert.Equal(t, "support@example.com", node(t, e, "identity").Properties["emailIdentity"])

	def, err := e.Link()
	require.NoError(t, err)
	assert.Equal(t, "support@example.com", def.Properties["sender"])
	assert.Equal(t, []string{"ses:*"}, def.Include[0].Actions)
	assert.Len(t, def.Include[0].Resources, 2)
}

func TestNewEmail_invalid(t *testing.T) {
	s := newTestStack(t)
	ctrl := gomock.NewController(t)
	adapter := dnstest.NewMockAdapter(ctrl)
	adapter.EXPECT().Domain().Return("example.com").AnyTimes()

	_, err := NewEmail(s, "Mail", EmailArgs{Sender: "me@example.com", Dns: adapter})
	assert.ErrorContains(t, err, "dns can only be set when the sender is a domain")

	_, err = NewEmail(s, "Mail", EmailArgs{Sender: "example.org", Dns: adapter})
	var invalid *dns.ValidationError
	assert.ErrorAs(t, err, &invalid)

	_, err = NewEmail(s, "Mail", EmailArgs{})
	assert.ErrorContains(t, err, "sender is required")
}
