// Package docs holds the OpenAPI description served at /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Matchwatch"
        },
        "license": {
            "name": "MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/matches": {
            "get": {
                "description": "Returns the match list from the last successful poll cycle, records exactly as the feed sent them. Supports If-None-Match.",
                "produces": ["application/json"],
                "tags": ["matches"],
                "summary": "Latest match snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/poller.Snapshot"}},
                    "304": {"description": "Not Modified"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        },
        "/sync": {
            "post": {
                "description": "Fetches the feed, broadcasts it to views and evaluates notifications now. Serialized with scheduled cycles.",
                "produces": ["application/json"],
                "tags": ["scheduler"],
                "summary": "Trigger a poll cycle",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/poller.CycleReport"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        },
        "/scheduler": {
            "get": {
                "produces": ["application/json"],
                "tags": ["scheduler"],
                "summary": "Scheduler status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/poller.Status"}}
                }
            }
        },
        "/scheduler/start": {
            "post": {
                "produces": ["application/json"],
                "tags": ["scheduler"],
                "summary": "Start the notification scheduler",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/poller.Status"}}
                }
            }
        },
        "/scheduler/stop": {
            "post": {
                "produces": ["application/json"],
                "tags": ["scheduler"],
                "summary": "Stop the notification scheduler",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/poller.Status"}}
                }
            }
        },
        "/push": {
            "post": {
                "description": "Displays a notification built from the payload on every configured surface. Push messages are not deduplicated.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Deliver a push message",
                "parameters": [
                    {
                        "description": "Push payload",
                        "name": "message",
                        "in": "body",
                        "schema": {"$ref": "#/definitions/notifications.PushMessage"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/notifications.Notification"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "notifications.Action": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "notifications.Notification": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "body": {"type": "string"},
                "tag": {"type": "string"},
                "icon": {"type": "string"},
                "badge": {"type": "string"},
                "url": {"type": "string"},
                "vibrate": {"type": "array", "items": {"type": "integer"}},
                "requireInteraction": {"type": "boolean"},
                "silent": {"type": "boolean"},
                "actions": {"type": "array", "items": {"$ref": "#/definitions/notifications.Action"}}
            }
        },
        "notifications.PushMessage": {
            "type": "object",
            "properties": {
                "notification": {
                    "type": "object",
                    "properties": {
                        "title": {"type": "string"},
                        "body": {"type": "string"}
                    }
                },
                "data": {
                    "type": "object",
                    "properties": {
                        "tag": {"type": "string"},
                        "url": {"type": "string"},
                        "clickAction": {"type": "string"}
                    }
                }
            }
        },
        "notifications.Report": {
            "type": "object",
            "properties": {
                "evaluated": {"type": "integer"},
                "due": {"type": "integer"},
                "sent": {"type": "integer"},
                "duplicates": {"type": "integer"},
                "store_errors": {"type": "integer"},
                "send_errors": {"type": "integer"}
            }
        },
        "poller.CycleReport": {
            "type": "object",
            "properties": {
                "matches": {"type": "integer"},
                "skipped": {"type": "integer"},
                "notifications": {"$ref": "#/definitions/notifications.Report"},
                "duration_ns": {"type": "integer"}
            }
        },
        "poller.Snapshot": {
            "type": "object",
            "properties": {
                "matches": {"type": "array", "items": {"type": "object"}},
                "fetched_at": {"type": "string", "format": "date-time"}
            }
        },
        "poller.Status": {
            "type": "object",
            "properties": {
                "running": {"type": "boolean"},
                "interval": {"type": "string"},
                "last_fetch": {"type": "string", "format": "date-time"}
            }
        },
        "respond.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "detail": {"type": "string"}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8000",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Matchwatch API",
	Description:      "Match schedule poller and milestone notification service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
