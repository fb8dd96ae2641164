package aws

import (
	"strings"

	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/iam"
	"github.com/klothoplatform/platform/pkg/link"
	"github.com/klothoplatform/platform/pkg/output"
)

const BucketType = "aws:Bucket"

type (
	BucketArgs struct {
		// Public allows anyone to read the bucket's objects.
		Public bool
		Cors   *BucketCors
		// Versioning keeps previous versions of overwritten objects.
		Versioning bool

		Transform struct {
			Bucket            *component.Transform
			PublicAccessBlock *component.Transform
			Policy            *component.Transform
			Cors              *component.Transform
		}

		// deferPolicy leaves the bucket policy to the owner, which adds it with createPolicy.
		deferPolicy bool
	}

	BucketCors struct {
		AllowHeaders []string
		AllowMethods []string
		AllowOrigins []string
		MaxAge       int
	}

	Bucket struct {
		*component.Component
		bucket *construct.Resource
		policy *construct.Resource

		public          bool
		publicAccess    *construct.Resource
		policyTransform *component.Transform
	}
)

var _ link.Linkable = (*Bucket)(nil)

func NewBucket(stack *component.Stack, name string, args BucketArgs, opts ...component.Option) (*Bucket, error) {
	c, err := component.New(stack, BucketType, name, opts...)
	if err != nil {
		return nil, err
	}
	b := &Bucket{Component: c, public: args.Public, policyTransform: args.Transform.Policy}

	b.bucket, err = c.AddResource("bucket", resource("s3_bucket", construct.Properties{
		"bucket":       strings.ToLower(c.PhysicalName("bucket", 63)),
		"forceDestroy": true,
	}, args.Transform.Bucket))
	if err != nil {
		return nil, err
	}
	bucketId := c.Attr(b.bucket, "bucket")

	if args.Versioning {
		if _, err := c.AddResource("versioning", resource("s3_bucket_versioning", construct.Properties{
			"bucket":                  bucketId,
			"versioningConfiguration": map[string]any{"status": "Enabled"},
		}, nil)); err != nil {
			return nil, err
		}
	}

	b.publicAccess, err = c.AddResource("public-access-block", resource("s3_bucket_public_access_block", construct.Properties{
		"bucket":                bucketId,
		"blockPublicAcls":       true,
		"blockPublicPolicy":     !args.Public,
		"ignorePublicAcls":      true,
		"restrictPublicBuckets": !args.Public,
	}, args.Transform.PublicAccessBlock))
	if err != nil {
		return nil, err
	}

	if !args.deferPolicy {
		if err := b.createPolicy(); err != nil {
			return nil, err
		}
	}

	if cors := args.Cors; cors != nil {
		rule := map[string]any{
			"allowedHeaders": toAny(defaultList(cors.AllowHeaders, "*")),
			"allowedMethods": toAny(defaultList(cors.AllowMethods, "DELETE", "GET", "HEAD", "POST", "PUT")),
			"allowedOrigins": toAny(defaultList(cors.AllowOrigins, "*")),
			"maxAgeSeconds":  cors.MaxAge,
		}
		if _, err := c.AddResource("cors", resource("s3_bucket_cors_configuration", construct.Properties{
			"bucket":    bucketId,
			"corsRules": []any{rule},
		}, args.Transform.Cors)); err != nil {
			return nil, err
		}
	}

	if err := c.RegisterOutputs(map[string]any{
		"name": b.BucketName(),
		"arn":  b.Arn(),
	}); err != nil {
		return nil, err
	}
	return b, nil
}

// createPolicy adds the bucket's only policy: the default statements followed by extra.
func (b *Bucket) createPolicy(extra ...iam.StatementEntry) error {
	doc := b.policyDocument(b.public)
	doc.Statement = append(doc.Statement, extra...)
	policyArgs := resource("s3_bucket_policy", construct.Properties{
		"bucket": b.BucketName(),
		"policy": doc.JSON(),
	}, b.policyTransform)
	policyArgs.Options.DependsOn = []construct.ResourceId{b.publicAccess.ID}
	var err error
	b.policy, err = b.AddResource("policy", policyArgs)
	return err
}

func (b *Bucket) policyDocument(public bool) *iam.PolicyDocument {
	arn := b.Arn()
	objects := output.Format("%s/*", arn)
	doc := &iam.PolicyDocument{Version: iam.Version}
	if public {
		doc.Statement = append(doc.Statement, iam.StatementEntry{
			Principal: map[string]any{"AWS": "*"},
			Effect:    "Allow",
			Action:    []string{"s3:GetObject"},
			Resource:  []output.Output[string]{objects},
		})
	}
	doc.Statement = append(doc.Statement, iam.StatementEntry{
		Principal: map[string]any{"AWS": "*"},
		Effect:    "Deny",
		Action:    []string{"s3:*"},
		Resource:  []output.Output[string]{arn, objects},
		Condition: map[string]any{"Bool": map[string]any{"aws:SecureTransport": "false"}},
	})
	return doc
}

func (b *Bucket) BucketName() output.Output[string] { return b.Attr(b.bucket, "bucket") }
func (b *Bucket) Arn() output.Output[string]        { return b.Attr(b.bucket, "arn") }
func (b *Bucket) Domain() output.Output[string] {
	return b.Attr(b.bucket, "bucketRegionalDomainName")
}

// BucketResource is the underlying s3_bucket.
func (b *Bucket) BucketResource() *construct.Resource { return b.bucket }

func (b *Bucket) LinkName() string { return b.Name() }

func (b *Bucket) Link() (*link.Definition, error) {
	return linkOf(
		map[string]any{"name": b.BucketName()},
		[]string{"s3:*"},
		b.Arn(), output.Format("%s/*", b.Arn()),
	), nil
}

func defaultList(v []string, def ...string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
