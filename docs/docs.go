// Package docs registers the OpenAPI document served at /swagger/doc.json.
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
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        },
        "/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Daemon status and active call",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/control.status"}
                    }
                }
            }
        },
        "/calls": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Stored call history",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Maximum records to return (default 20)",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/call.Record"}}
                    },
                    "404": {"description": "History disabled", "schema": {"type": "string"}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "string"}}
                }
            }
        },
        "/hook": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["hook"],
                "summary": "Set the simulated hook switch state",
                "parameters": [
                    {
                        "description": "Desired handset state",
                        "name": "state",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/control.hookRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}
                    },
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "404": {"description": "Hook source is not manual", "schema": {"type": "string"}}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["events"],
                "summary": "Live call event stream",
                "responses": {
                    "101": {"description": "Switching protocols", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "call.Record": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "started_at": {"type": "string"},
                "ended_at": {"type": "string"},
                "reason": {"type": "string"},
                "turns": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/reply.Turn"}
                }
            }
        },
        "call.Snapshot": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "state": {"type": "string"},
                "started_at": {"type": "string"},
                "last_active": {"type": "string"},
                "turns": {"type": "integer"},
                "reason": {"type": "string"}
            }
        },
        "control.status": {
            "type": "object",
            "properties": {
                "ready": {"type": "boolean"},
                "uptime": {"type": "string"},
                "backends": {"type": "object", "additionalProperties": {"type": "string"}},
                "call": {"$ref": "#/definitions/call.Snapshot"}
            }
        },
        "control.hookRequest": {
            "type": "object",
            "properties": {
                "off_hook": {"type": "boolean"}
            }
        },
        "reply.Turn": {
            "type": "object",
            "properties": {
                "role": {"type": "string"},
                "text": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "rotaryd control API",
	Description:      "Control and observation surface of the rotary phone voice daemon.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
