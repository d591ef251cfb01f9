package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/djangoconverge/internal/config"
	"github.com/specialistvlad/djangoconverge/internal/ctxlog"
	"github.com/specialistvlad/djangoconverge/internal/dbspec"
	"github.com/specialistvlad/djangoconverge/internal/ordered"
	"github.com/specialistvlad/djangoconverge/internal/settings"
)

var applicationSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "database"},
		{Name: "debug"},
		{Name: "allowed_hosts"},
		{Name: "secret_key"},
		{Name: "migrate"},
		{Name: "syncdb"},
		{Name: "collectstatic"},
		{Name: "manage_path"},
		{Name: "settings_module"},
		{Name: "wsgi_module"},
		{Name: "local_settings_path"},
		{Name: "python"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "database"},
		{Type: "extra_database", LabelNames: []string{"name"}},
	},
}

// translateApplication converts one application_django block into the
// agnostic model.
func (l *Loader) translateApplication(ctx context.Context, b *applicationBlock) (*config.Application, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx)
	app := config.NewApplication(b.Path)

	content, diags := b.Body.Content(applicationSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	evalCtx := l.evalContext()
	attrs := content.Attributes

	diags = diags.Extend(decodeOptional(attrs["debug"], evalCtx, &app.Debug))
	diags = diags.Extend(decodeOptional(attrs["migrate"], evalCtx, &app.Migrate))
	diags = diags.Extend(decodeOptional(attrs["syncdb"], evalCtx, &app.Syncdb))
	diags = diags.Extend(decodeOptional(attrs["collectstatic"], evalCtx, &app.CollectStatic))
	diags = diags.Extend(decodeOptional(attrs["secret_key"], evalCtx, &app.SecretKey))
	diags = diags.Extend(decodeOptional(attrs["manage_path"], evalCtx, &app.ManagePath))
	diags = diags.Extend(decodeOptional(attrs["settings_module"], evalCtx, &app.SettingsModule))
	diags = diags.Extend(decodeOptional(attrs["wsgi_module"], evalCtx, &app.WsgiModule))
	diags = diags.Extend(decodeOptional(attrs["local_settings_path"], evalCtx, &app.LocalSettingsPath))
	diags = diags.Extend(decodeOptional(attrs["python"], evalCtx, &app.Python))

	hosts, hostDiags := decodeStringOrList(attrs["allowed_hosts"], evalCtx)
	diags = diags.Extend(hostDiags)
	app.AllowedHosts = hosts

	dbs, dbDiags := l.translateDatabases(attrs["database"], content.Blocks, evalCtx)
	diags = diags.Extend(dbDiags)
	app.Databases = dbs

	if diags.HasErrors() {
		return nil, diags
	}
	logger.Debug("Application translated.", "path", app.Path, "databases", len(app.Databases))
	return app, diags
}

// translateDatabases collects the default database, declared either as a
// `database` URL argument or a `database` block, and every extra_database.
func (l *Loader) translateDatabases(attr *hcl.Attribute, blocks hcl.Blocks, evalCtx *hcl.EvalContext) ([]settings.Database, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	var dbs []settings.Database

	defaults := blocks.OfType("database")
	if attr != nil && len(defaults) > 0 {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Duplicate database definition",
			Detail:   "The default database is declared both as an argument and as a block; use only one.",
			Subject:  defaults[0].DefRange.Ptr(),
		}}
	}
	if len(defaults) > 1 {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Duplicate database block",
			Detail:   "Only one database block is allowed; use extra_database blocks for additional databases.",
			Subject:  defaults[1].DefRange.Ptr(),
		}}
	}

	if attr != nil {
		var raw string
		diags = diags.Extend(decodeOptional(attr, evalCtx, &raw))
		if raw != "" {
			dbs = append(dbs, settings.Database{Name: settings.DefaultDatabase, Spec: dbspec.URL(raw)})
		}
	}
	if len(defaults) == 1 {
		spec, specDiags := decodeDatabaseBody(defaults[0].Body, evalCtx)
		diags = diags.Extend(specDiags)
		dbs = append(dbs, settings.Database{Name: settings.DefaultDatabase, Spec: spec})
	}

	for _, block := range blocks.OfType("extra_database") {
		name := block.Labels[0]
		if name == settings.DefaultDatabase {
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid database name",
				Detail:   `The "default" database is declared with the database argument or block.`,
				Subject:  block.LabelRanges[0].Ptr(),
			})
			continue
		}
		spec, specDiags := decodeDatabaseBody(block.Body, evalCtx)
		diags = diags.Extend(specDiags)
		dbs = append(dbs, settings.Database{Name: name, Spec: spec})
	}
	return dbs, diags
}

// decodeDatabaseBody reads a structured database block. Attributes are
// visited in source order so extra options keep their declared order. A
// `url` attribute selects the URL form and the other fields are ignored.
func decodeDatabaseBody(body hcl.Body, evalCtx *hcl.EvalContext) (dbspec.Spec, hcl.Diagnostics) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	sorted := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		sorted = append(sorted, attr)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Range.Start.Byte < sorted[j].Range.Start.Byte
	})

	fields := &dbspec.Fields{}
	var url string
	for _, attr := range sorted {
		var target *string
		switch attr.Name {
		case "url":
			target = &url
		case "engine":
			target = &fields.Engine
		case "name":
			target = &fields.Name
		case "user":
			target = &fields.User
		case "password":
			target = &fields.Password
		case "host":
			target = &fields.Host
		case "port":
			target = &fields.Port
		}
		if target != nil {
			diags = diags.Extend(decodeOptional(attr, evalCtx, target))
			continue
		}

		val, valDiags := attr.Expr.Value(evalCtx)
		diags = diags.Extend(valDiags)
		if valDiags.HasErrors() || val.IsNull() {
			continue
		}
		native, err := nativeValue(val)
		if err != nil {
			diags = diags.Append(attrError(attr, "Unsupported database option", fmt.Sprintf("Option %q: %s.", attr.Name, err)))
			continue
		}
		fields.Extra = append(fields.Extra, ordered.Pair{Key: attr.Name, Value: native})
	}

	if url != "" {
		return dbspec.URL(url), diags
	}
	return fields, diags
}

// decodeOptional decodes attr into target when the attribute is present and
// not null.
func decodeOptional[T any](attr *hcl.Attribute, evalCtx *hcl.EvalContext, target *T) hcl.Diagnostics {
	if attr == nil {
		return nil
	}
	val, diags := attr.Expr.Value(evalCtx)
	if diags.HasErrors() || val.IsNull() {
		return diags
	}
	return gohcl.DecodeExpression(attr.Expr, evalCtx, target)
}
