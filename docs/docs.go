// Package docs registers the OpenAPI description served under /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Login", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/auth/logout": {"post": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Logout", "responses": {"200": {"description": "OK"}}}},
        "/auth/me": {"get": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Current user", "responses": {"200": {"description": "OK"}}}},
        "/wizard": {"get": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Wizard state", "responses": {"200": {"description": "OK"}}}},
        "/wizard/steps/{step}": {"post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Select step", "parameters": [{"type": "integer", "name": "step", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/wizard/continue": {"post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Continue to next step", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/wizard/hackathon": {"post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Analyze hackathon", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "502": {"description": "Bad Gateway"}}}},
        "/wizard/ideas": {"get": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Project ideas", "parameters": [{"type": "boolean", "name": "regenerate", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/wizard/ideas/{index}/select": {"post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Select idea", "parameters": [{"type": "integer", "name": "index", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/wizard/architecture": {"get": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Execution plan", "parameters": [{"type": "boolean", "name": "regenerate", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/wizard/architecture/regenerate": {"post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Regenerate execution plan", "responses": {"200": {"description": "OK"}}}},
        "/wizard/architecture/save": {"post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Save execution plan", "responses": {"200": {"description": "OK"}}}},
        "/wizard/architecture/versions": {"get": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Execution plan history", "responses": {"200": {"description": "OK"}}}},
        "/wizard/architecture/versions/{version}/restore": {"post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Restore execution plan version", "parameters": [{"type": "integer", "name": "version", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/wizard/guide": {"get": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Build guide", "parameters": [{"type": "boolean", "name": "regenerate", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/wizard/guide/save": {"post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Save build guide", "responses": {"200": {"description": "OK"}}}},
        "/wizard/guide/steps/{index}/toggle": {"post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Toggle guide step", "parameters": [{"type": "integer", "name": "index", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/wizard/guide/finish": {"post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Finish build guide", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/wizard/deployment": {"get": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Deployment guidance", "responses": {"200": {"description": "OK"}}}},
        "/wizard/deployment/complete": {"post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Mark project published", "responses": {"200": {"description": "OK"}}}},
        "/wizard/export": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Download plan export", "produces": ["application/yaml"], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["wizard"], "summary": "Export plan", "responses": {"200": {"description": "OK"}, "202": {"description": "Accepted"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "BuildBuddy API",
	Description:      "Guided hackathon project planning: analysis, ideas, execution plan, build guide and deployment.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
