// Package file stores sercha-pdf configuration as TOML under the data
// directory. SERCHA_PDF_* variables and provider API keys, optionally
// loaded from .env files, take precedence over the file.
package file
