package dbspec

import "strings"

// engines maps URL schemes and short engine names to Django backend modules.
var engines = map[string]string{
	"postgres":   "django.db.backends.postgresql_psycopg2",
	"postgresql": "django.db.backends.postgresql_psycopg2",
	"pgsql":      "django.db.backends.postgresql_psycopg2",
	"postgis":    "django.contrib.gis.db.backends.postgis",
	"mysql":      "django.db.backends.mysql",
	"mysqlgis":   "django.contrib.gis.db.backends.mysql",
	"sqlite":     "django.db.backends.sqlite3",
	"sqlite3":    "django.db.backends.sqlite3",
	"spatialite": "django.contrib.gis.db.backends.spatialite",
	"oracle":     "django.db.backends.oracle",
}

// Engine expands a short engine alias into its fully-qualified backend
// identifier. Unknown names are returned unchanged.
func Engine(alias string) string {
	if full, ok := engines[strings.ToLower(alias)]; ok {
		return full
	}
	return alias
}
