// Package secret resolves credentials referenced from geofetch configuration,
// such as the Open-Meteo API key.
//
// A configuration value goes through two steps:
//   - Strict environment expansion: ${VAR} must be set (see ExpandEnvStrict).
//   - Secret references: secretref:<provider>:<ref> is replaced with the
//     value returned by the named Provider (see Resolver).
//
// References may make up the whole value or appear inline:
//   - Full value:  secretref:env:OPEN_METEO_API_KEY
//   - Inline use:  Bearer secretref:file:openmeteo_key
//
// Two providers are built in and registered in DefaultRegistry: "env" reads
// process environment variables and "file" reads files from a directory,
// which fits mounted container secrets.
package secret
