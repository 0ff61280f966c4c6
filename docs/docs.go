// Package docs holds the OpenAPI description served at /swagger/*any.
//
// Regenerate with: swag init -g internal/http/router.go -o docs
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
        "/announcements": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Announcements"],
                "summary": "List announcements",
                "operationId": "listAnnouncements",
                "parameters": [
                    {"type": "string", "description": "Free-text search over title and description", "name": "q", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListAnnouncementsResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Announcements"],
                "summary": "Create an announcement",
                "operationId": "createAnnouncement",
                "parameters": [
                    {"description": "Announcement payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateAnnouncementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Announcement"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Announcement id already exists", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/announcements/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Announcements"],
                "summary": "Get an announcement",
                "operationId": "getAnnouncement",
                "parameters": [
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Announcement"}},
                    "404": {"description": "Announcement not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/announcements/{id}/close": {
            "patch": {
                "produces": ["application/json"],
                "tags": ["Announcements"],
                "summary": "Close an announcement",
                "operationId": "closeAnnouncement",
                "parameters": [
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Announcement"}},
                    "404": {"description": "Announcement not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/announcements/{id}/comments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Comments"],
                "summary": "List comments of an announcement",
                "operationId": "listComments",
                "parameters": [
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true},
                    {"maximum": 100, "minimum": 1, "type": "integer", "description": "Maximum number of comments", "name": "limit", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListCommentsResponse"}},
                    "400": {"description": "Missing or invalid limit", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Announcement not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Comments"],
                "summary": "Comment on an announcement",
                "operationId": "addComment",
                "parameters": [
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true},
                    {"description": "Comment payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AddCommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Comment"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Announcement not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/announcements/{id}/reactions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Reactions"],
                "summary": "List reactions and counts",
                "operationId": "listReactions",
                "parameters": [
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListReactionsResponse"}},
                    "404": {"description": "Announcement not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Reactions"],
                "summary": "React to an announcement",
                "operationId": "addReaction",
                "parameters": [
                    {"type": "string", "description": "Caller id", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Client token for safe retries", "name": "Idempotency-Key", "in": "header", "required": true},
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true},
                    {"description": "Reaction payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AddReactionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Duplicate request", "schema": {"$ref": "#/definitions/handlers.AddReactionResponse"}, "headers": {"Idempotent-Replayed": {"type": "string", "description": "true"}}},
                    "201": {"description": "Reaction stored", "schema": {"$ref": "#/definitions/handlers.AddReactionResponse"}},
                    "400": {"description": "Missing header or invalid type", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Announcement not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Reactions"],
                "summary": "Remove the caller's reaction",
                "operationId": "removeReaction",
                "parameters": [
                    {"type": "string", "description": "Caller id", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Missing X-User-ID", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Announcement or reaction not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/announcements/{id}/reactions/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Reactions"],
                "summary": "Reaction audit history",
                "operationId": "reactionHistory",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"type": "string", "description": "Announcement ID", "name": "id", "in": "path", "required": true},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ReactionHistoryResponse"}, "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}},
                    "304": {"description": "Not Modified"},
                    "404": {"description": "Announcement not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "History disabled", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Announcement": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["active", "closed"]},
                "created_at": {"type": "string"},
                "comments": {"type": "array", "items": {"$ref": "#/definitions/domain.Comment"}},
                "reactions": {"type": "array", "items": {"$ref": "#/definitions/domain.Reaction"}}
            }
        },
        "domain.Comment": {
            "type": "object",
            "properties": {
                "author": {"type": "string"},
                "text": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "domain.Reaction": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "type": {"type": "string", "enum": ["up", "down", "heart"]},
                "created_at": {"type": "string"},
                "idempotency_key": {"type": "string"}
            }
        },
        "domain.ReactionCounts": {
            "type": "object",
            "properties": {
                "up": {"type": "integer"},
                "down": {"type": "integer"},
                "heart": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "domain.ReactionEvent": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "announcement_id": {"type": "string"},
                "user_id": {"type": "string"},
                "action": {"type": "string", "enum": ["accepted", "duplicate", "removed"]},
                "type": {"type": "string"},
                "idempotency_key": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "handlers.AddCommentRequest": {
            "type": "object",
            "properties": {
                "author": {"type": "string", "example": "maria"},
                "text": {"type": "string", "example": "Will the reading room stay open?"}
            }
        },
        "handlers.AddReactionRequest": {
            "type": "object",
            "required": ["type"],
            "properties": {
                "type": {"type": "string", "enum": ["up", "down", "heart"], "example": "heart"}
            }
        },
        "handlers.AddReactionResponse": {
            "type": "object",
            "properties": {
                "outcome": {"type": "string", "example": "accepted"},
                "duplicate": {"type": "boolean"},
                "reaction": {"$ref": "#/definitions/domain.Reaction"}
            }
        },
        "handlers.CreateAnnouncementRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "id": {"type": "string", "example": "ann-42"},
                "title": {"type": "string", "example": "Library closed on Friday"},
                "description": {"type": "string", "example": "Closed for maintenance, reopens Monday."}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "resource not found"}
            }
        },
        "handlers.ListAnnouncementsResponse": {
            "type": "object",
            "properties": {
                "announcements": {"type": "array", "items": {"$ref": "#/definitions/domain.Announcement"}},
                "count": {"type": "integer"}
            }
        },
        "handlers.ListCommentsResponse": {
            "type": "object",
            "properties": {
                "comments": {"type": "array", "items": {"$ref": "#/definitions/domain.Comment"}},
                "count": {"type": "integer"}
            }
        },
        "handlers.ListReactionsResponse": {
            "type": "object",
            "properties": {
                "reactions": {"type": "array", "items": {"$ref": "#/definitions/domain.Reaction"}},
                "counts": {"$ref": "#/definitions/domain.ReactionCounts"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.ReactionHistoryResponse": {
            "type": "object",
            "properties": {
                "events": {"type": "array", "items": {"$ref": "#/definitions/domain.ReactionEvent"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Notice Board API",
	Description:      "Announcements with comments and idempotent per-user reactions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
