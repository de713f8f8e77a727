// Package api provides REST API handlers for the WillWe indexer
// @title WillWe Indexer API
// @version 1.0
// @description REST API for querying WillWe governance state indexed from chain events
// @contact.name API Support
// @contact.url https://github.com/willwe-labs/willwe-indexer
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @basePath /api/v1
// @schemes http https
package api
