package aws

import (
	"fmt"
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/dns"
	"github.com/klothoplatform/platform/pkg/iam"
	"github.com/klothoplatform/platform/pkg/link"
	"github.com/klothoplatform/platform/pkg/output"
	"github.com/klothoplatform/platform/pkg/site"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	NuxtType       = "aws:Nuxt"
	RemixType      = "aws:Remix"
	AnalogType     = "aws:Analog"
	SolidStartType = "aws:SolidStart"
)

const (
	cacheVersioned = "public,max-age=31536000,immutable"
	cacheDefault   = "public,max-age=0,s-maxage=86400,stale-while-revalidate=8640"

	// cachingOptimized and cachingDisabled are AWS managed CloudFront cache policies.
	cachingOptimized = "658327ea-f89d-4fab-a63d-7e88639e58f6"
	cachingDisabled  = "4135ea2d-6df8-44a3-9df3-4b5a84be39ad"
	// allViewerExceptHost is the AWS managed origin request policy forwarding everything but the Host header.
	allViewerExceptHost = "b689b0a8-53d0-40ab-baf2-68738e2966ac"
)

type (
	SsrSiteArgs struct {
		// Path to the site's directory, after the production build has run.
		Path   string
		Domain *Domain
		Link   []link.Linkable
		// Environment is passed to the server function.
		Environment map[string]string
		Server      struct {
			Memory  int
			Timeout int
		}
		// AssetFileOptions override the cache headers of the files matching each glob, first match wins.
		AssetFileOptions []AssetFileOptions
		Fs               afero.Fs `mapstructure:"-"`

		Transform struct {
			Assets       *component.Transform
			Cdn          *component.Transform
			Certificate  *component.Transform
			ServerPolicy *component.Transform
		}
	}

	AssetFileOptions struct {
		Files        string
		CacheControl string
		ContentType  string
	}

	SsrSite struct {
		*component.Component
		plan   *site.Plan
		domain *Domain
		assets *Bucket
		server *Function
		cdn    *construct.Resource
	}

	assetFile struct {
		source       string
		key          string
		cacheControl string
		contentType  string
	}
)

var _ link.Linkable = (*SsrSite)(nil)

func NewNuxt(stack *component.Stack, name string, args SsrSiteArgs, opts ...component.Option) (*SsrSite, error) {
	return NewSsrSite(stack, NuxtType, name, site.Nuxt, args, opts...)
}

func NewRemix(stack *component.Stack, name string, args SsrSiteArgs, opts ...component.Option) (*SsrSite, error) {
	return NewSsrSite(stack, RemixType, name, site.Remix, args, opts...)
}

func NewAnalog(stack *component.Stack, name string, args SsrSiteArgs, opts ...component.Option) (*SsrSite, error) {
	return NewSsrSite(stack, AnalogType, name, site.Analog, args, opts...)
}

func NewSolidStart(stack *component.Stack, name string, args SsrSiteArgs, opts ...component.Option) (*SsrSite, error) {
	return NewSsrSite(stack, SolidStartType, name, site.SolidStart, args, opts...)
}

// NewSsrSite deploys a server-rendered site: its static assets go to a bucket, its server to a function, and a
// CloudFront distribution routes between them.
func NewSsrSite(
	stack *component.Stack,
	typ, name string,
	planner site.Planner,
	args SsrSiteArgs,
	opts ...component.Option,
) (*SsrSite, error) {
	if args.Path == "" {
		args.Path = "."
	}
	if err := args.Domain.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s %s: %w", typ, name, err)
	}
	if args.Fs == nil {
		args.Fs = afero.NewOsFs()
	}
	for _, o := range args.AssetFileOptions {
		if !doublestar.ValidatePattern(o.Files) {
			return nil, fmt.Errorf("invalid %s %s: bad asset file pattern %q", typ, name, o.Files)
		}
	}
	plan, err := planner.Plan(args.Fs, args.Path)
	if err != nil {
		return nil, fmt.Errorf("could not plan %s %s: %w", typ, name, err)
	}

	c, err := component.New(stack, typ, name, opts...)
	if err != nil {
		return nil, err
	}
	s := &SsrSite{Component: c, plan: plan, domain: args.Domain}
	c.Logger().Debug("planned site", zap.String("framework", plan.Framework), zap.String("base", plan.Base))

	var bucketArgs BucketArgs
	bucketArgs.Transform.Bucket = args.Transform.Assets
	bucketArgs.deferPolicy = true
	if s.assets, err = NewBucket(stack, name+"Assets", bucketArgs, component.WithParent(c)); err != nil {
		return nil, err
	}
	if err := s.uploadAssets(args); err != nil {
		return nil, err
	}

	serverArgs := FunctionArgs{
		Handler:     plan.Server.Handler,
		Bundle:      plan.Server.Bundle,
		Description: plan.Server.Description,
		Memory:      args.Server.Memory,
		Timeout:     args.Server.Timeout,
		Environment: args.Environment,
		Url:         true,
		Streaming:   plan.Server.Streaming,
		Link:        args.Link,
	}
	serverArgs.Transform.Policy = args.Transform.ServerPolicy
	if s.server, err = NewFunction(stack, name+"Server", serverArgs, component.WithParent(c)); err != nil {
		return nil, err
	}

	if err := s.createDistribution(args); err != nil {
		return nil, err
	}
	if err := c.RegisterOutputs(map[string]any{"url": s.Url()}); err != nil {
		return nil, err
	}
	return s, nil
}

// uploadAssets records every file of the plan's assets with the cache headers it is served with.
func (s *SsrSite) uploadAssets(args SsrSiteArgs) error {
	var files []any
	for _, asset := range s.plan.Assets {
		found, err := collectAssets(args.Fs, asset, args.AssetFileOptions)
		if err != nil {
			return err
		}
		for _, f := range found {
			entry := map[string]any{
				"source":       f.source,
				"key":          f.key,
				"cacheControl": f.cacheControl,
			}
			if f.contentType != "" {
				entry["contentType"] = f.contentType
			}
			files = append(files, entry)
		}
	}
	_, err := s.AddResource("asset-files", resource("bucket_files", construct.Properties{
		"bucketName": s.assets.BucketName(),
		"files":      files,
		"purge":      true,
	}, nil))
	return err
}

func collectAssets(fsys afero.Fs, asset site.Asset, options []AssetFileOptions) ([]assetFile, error) {
	var files []assetFile
	err := afero.Walk(fsys, asset.From, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(asset.From, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		f := assetFile{
			source:       p,
			key:          path.Join(asset.To, rel),
			cacheControl: cacheDefault,
			contentType:  mime.TypeByExtension(path.Ext(rel)),
		}
		if asset.Cached && asset.VersionedSubDir != "" && strings.HasPrefix(rel, asset.VersionedSubDir+"/") {
			f.cacheControl = cacheVersioned
		}
		for _, o := range options {
			if ok, _ := doublestar.Match(o.Files, rel); ok {
				if o.CacheControl != "" {
					f.cacheControl = o.CacheControl
				}
				if o.ContentType != "" {
					f.contentType = o.ContentType
				}
				break
			}
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not read assets in %s: %w", asset.From, err)
	}
	return files, nil
}

// assetBehaviors routes each top-level entry of the assets to the bucket, everything else goes to the server.
func (s *SsrSite) assetBehaviors(fsys afero.Fs) ([]any, error) {
	var patterns []string
	for _, asset := range s.plan.Assets {
		entries, err := afero.ReadDir(fsys, asset.From)
		if err != nil {
			return nil, fmt.Errorf("could not read assets in %s: %w", asset.From, err)
		}
		for _, e := range entries {
			p := path.Join(asset.To, e.Name())
			if e.IsDir() {
				p += "/*"
			}
			patterns = append(patterns, p)
		}
	}
	sort.Strings(patterns)
	behaviors := make([]any, len(patterns))
	for i, p := range patterns {
		behaviors[i] = map[string]any{
			"pathPattern":          p,
			"targetOriginId":       "s3",
			"viewerProtocolPolicy": "redirect-to-https",
			"allowedMethods":       []any{"GET", "HEAD", "OPTIONS"},
			"cachedMethods":        []any{"GET", "HEAD"},
			"compress":             true,
			"cachePolicyId":        cachingOptimized,
		}
	}
	return behaviors, nil
}

func (s *SsrSite) createDistribution(args SsrSiteArgs) error {
	oac, err := s.AddResource("origin-access", resource("cloudfront_origin_access_control", construct.Properties{
		"name":                          s.PhysicalName("origin-access", 64),
		"originAccessControlOriginType": "s3",
		"signingBehavior":               "always",
		"signingProtocol":               "sigv4",
	}, nil))
	if err != nil {
		return err
	}
	behaviors, err := s.assetBehaviors(args.Fs)
	if err != nil {
		return err
	}
	serverHost := output.Apply(s.server.Url(), func(u string) (string, error) {
		return strings.TrimSuffix(strings.TrimPrefix(u, "https://"), "/"), nil
	})

	props := construct.Properties{
		"enabled":           true,
		"comment":           fmt.Sprintf("%s site %s", s.plan.Framework, s.Name()),
		"httpVersion":       "http2and3",
		"priceClass":        "PriceClass_All",
		"defaultRootObject": "",
		"origins": []any{
			map[string]any{
				"originId":              "s3",
				"domainName":            s.assets.Domain(),
				"originPath":            "",
				"originAccessControlId": s.Attr(oac, "id"),
			},
			map[string]any{
				"originId":   "server",
				"domainName": serverHost,
				"customOriginConfig": map[string]any{
					"httpPort":             80,
					"httpsPort":            443,
					"originProtocolPolicy": "https-only",
					"originSslProtocols":   []any{"TLSv1.2"},
				},
			},
		},
		"defaultCacheBehavior": map[string]any{
			"targetOriginId":        "server",
			"viewerProtocolPolicy":  "redirect-to-https",
			"allowedMethods":        []any{"DELETE", "GET", "HEAD", "OPTIONS", "PATCH", "POST", "PUT"},
			"cachedMethods":         []any{"GET", "HEAD"},
			"compress":              true,
			"cachePolicyId":         cachingDisabled,
			"originRequestPolicyId": allViewerExceptHost,
		},
		"orderedCacheBehaviors": behaviors,
		"restrictions":          map[string]any{"geoRestriction": map[string]any{"restrictionType": "none"}},
	}
	if args.Domain != nil {
		cert, err := newCertificate(s.Component, args.Domain, args.Transform.Certificate)
		if err != nil {
			return err
		}
		props["aliases"] = []any{args.Domain.Name}
		props["viewerCertificate"] = map[string]any{
			"acmCertificateArn":      cert.arn,
			"sslSupportMethod":       "sni-only",
			"minimumProtocolVersion": "TLSv1.2_2021",
		}
	} else {
		props["viewerCertificate"] = map[string]any{"cloudfrontDefaultCertificate": true}
	}

	if s.cdn, err = s.AddResource("cdn", resource("cloudfront_distribution", props, args.Transform.Cdn)); err != nil {
		return err
	}
	// the assets are private, only this distribution may read them
	if err := s.assets.createPolicy(iam.StatementEntry{
		Principal: map[string]any{"Service": "cloudfront.amazonaws.com"},
		Effect:    "Allow",
		Action:    []string{"s3:GetObject"},
		Resource:  []output.Output[string]{output.Format("%s/*", s.assets.Arn())},
		Condition: map[string]any{"StringEquals": map[string]any{"AWS:SourceArn": s.Attr(s.cdn, "arn")}},
	}); err != nil {
		return err
	}

	if args.Domain != nil && args.Domain.Dns != nil {
		if _, err := args.Domain.Dns.CreateAlias(s.Component, "alias", dns.AliasRecord{
			Name:      args.Domain.Name,
			AliasName: s.Attr(s.cdn, "domainName"),
			AliasZone: output.Of(cloudFrontZone),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *SsrSite) Plan() *site.Plan  { return s.plan }
func (s *SsrSite) Server() *Function { return s.server }
func (s *SsrSite) Assets() *Bucket   { return s.assets }

func (s *SsrSite) DistributionId() output.Output[string] { return s.Attr(s.cdn, "id") }

// Url is the custom domain when there is one, otherwise the CloudFront domain.
func (s *SsrSite) Url() output.Output[string] {
	if s.domain != nil {
		return output.Of("https://" + s.domain.Name)
	}
	return output.Format("https://%s", s.Attr(s.cdn, "domainName"))
}

func (s *SsrSite) LinkName() string { return s.Name() }

func (s *SsrSite) Link() (*link.Definition, error) {
	return linkOf(map[string]any{"url": s.Url()}, nil), nil
}
