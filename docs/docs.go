// Package docs registers the OpenAPI document served by gin-swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
        "/complaints": {
            "get": {
                "description": "Returns complaints matching the filters in creation order. Non-admin callers only see their own complaints. Supports weak ETag via If-None-Match.",
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "List complaints",
                "operationId": "listComplaints",
                "parameters": [
                    {"type": "string", "description": "User ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"type": "string", "description": "Submitter filter (admin)", "name": "user_id", "in": "query"},
                    {"enum": ["user", "admin"], "type": "string", "description": "user or admin", "name": "role", "in": "query"},
                    {"type": "string", "description": "Category or All", "name": "category", "in": "query"},
                    {"type": "string", "description": "Status or All", "name": "status", "in": "query"},
                    {"type": "string", "description": "today, yesterday or YYYY-MM-DD", "name": "date", "in": "query"},
                    {"minimum": 1, "type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListComplaintsResponse"}, "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}},
                    "304": {"description": "Not Modified"},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Classifies the text and stores a Pending complaint for the caller. Retries with the same Idempotency-Key return the original complaint.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Submit a complaint",
                "operationId": "submitComplaint",
                "parameters": [
                    {"type": "string", "description": "User ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Retry key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Complaint payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SubmitComplaintRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Complaint"}, "headers": {"Idempotent-Replayed": {"type": "string", "description": "true when an earlier result was returned"}}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Classification failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/grouped": {
            "get": {
                "description": "Admin-only. Groups appear in the order their first complaint was created; days use the server's configured time zone.",
                "produces": ["application/json"],
                "tags": ["Triage"],
                "summary": "Complaints grouped by day",
                "operationId": "groupedComplaints",
                "parameters": [
                    {"type": "string", "description": "Category or All", "name": "category", "in": "query"},
                    {"type": "string", "description": "Status or All", "name": "status", "in": "query"},
                    {"type": "string", "description": "today, yesterday or YYYY-MM-DD", "name": "date", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.GroupedResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Admin only", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/stream": {
            "get": {
                "description": "Upgrades to a websocket and pushes complaint.created and complaint.status_changed events. Admins receive every event; users only events about their own complaints.",
                "tags": ["Complaints"],
                "summary": "Live complaint events",
                "operationId": "complaintStream",
                "parameters": [
                    {"type": "string", "description": "JWT for browser clients", "name": "access_token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Streaming disabled", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Get a complaint",
                "operationId": "getComplaint",
                "parameters": [
                    {"minimum": 1, "type": "integer", "description": "Complaint ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Complaint"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Not the owner", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/{id}/history": {
            "get": {
                "description": "Returns every status transition, oldest first, with the acting admin.",
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Status history of a complaint",
                "operationId": "complaintHistory",
                "parameters": [
                    {"minimum": 1, "type": "integer", "description": "Complaint ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HistoryResponse"}},
                    "403": {"description": "Not the owner", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/{id}/status": {
            "put": {
                "description": "Admin-only. Resolving without admin_response stores the default resolution message. A Resolved complaint cannot change again.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Move a complaint to a new status",
                "operationId": "updateComplaintStatus",
                "parameters": [
                    {"minimum": 1, "type": "integer", "description": "Complaint ID", "name": "id", "in": "path", "required": true},
                    {"description": "Target status", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Complaint"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Admin only", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/stats": {
            "get": {
                "description": "Admin-only. Accepts the same filters as the list endpoint; categories without matches are omitted.",
                "produces": ["application/json"],
                "tags": ["Triage"],
                "summary": "Complaint counts per category",
                "operationId": "complaintStats",
                "parameters": [
                    {"type": "string", "description": "Category or All", "name": "category", "in": "query"},
                    {"type": "string", "description": "Status or All", "name": "status", "in": "query"},
                    {"type": "string", "description": "today, yesterday or YYYY-MM-DD", "name": "date", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Admin only", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/categories": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Reference"],
                "summary": "Categories, statuses and transitions",
                "operationId": "categories",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CategoriesResponse"}}
                }
            }
        },
        "/resolution-presets": {
            "get": {
                "description": "Presets only prefill the admin's message; any non-empty text is accepted when resolving.",
                "produces": ["application/json"],
                "tags": ["Reference"],
                "summary": "Suggested resolution messages",
                "operationId": "resolutionPresets",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PresetsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Complaint": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "example": 7},
                "submitter_id": {"type": "string", "example": "user123"},
                "order_id": {"type": "string", "example": "ORD-1042"},
                "text": {"type": "string", "example": "Food was cold and the rider was late"},
                "category": {"type": "string", "enum": ["Delivery Issue", "Food Quality Issue", "Wrong / Missing Item", "Payment / Refund Issue", "App / Technical Issue"]},
                "status": {"type": "string", "enum": ["Pending", "Verified", "Resolved", "Not Responded"]},
                "admin_response": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "domain.StatusEvent": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "complaint_id": {"type": "integer"},
                "actor_id": {"type": "string"},
                "from": {"type": "string"},
                "to": {"type": "string"},
                "message": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "domain.Transition": {
            "type": "object",
            "properties": {
                "from": {"type": "string"},
                "to": {"type": "string"}
            }
        },
        "services.DateGroup": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2025-03-01"},
                "complaints": {"type": "array", "items": {"$ref": "#/definitions/domain.Complaint"}}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "complaint not found"}
            }
        },
        "handlers.SubmitComplaintRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {
                "text": {"type": "string", "example": "Food was cold and the rider was late"},
                "order_id": {"type": "string", "example": "ORD-1042"}
            }
        },
        "handlers.UpdateStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "example": "Resolved"},
                "admin_response": {"type": "string", "example": "Full refund issued"}
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
        "handlers.ListComplaintsResponse": {
            "type": "object",
            "properties": {
                "complaints": {"type": "array", "items": {"$ref": "#/definitions/domain.Complaint"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.HistoryResponse": {
            "type": "object",
            "properties": {
                "complaint_id": {"type": "integer"},
                "events": {"type": "array", "items": {"$ref": "#/definitions/domain.StatusEvent"}}
            }
        },
        "handlers.GroupedResponse": {
            "type": "object",
            "properties": {
                "groups": {"type": "array", "items": {"$ref": "#/definitions/services.DateGroup"}}
            }
        },
        "handlers.CategoriesResponse": {
            "type": "object",
            "properties": {
                "categories": {"type": "array", "items": {"type": "string"}},
                "statuses": {"type": "array", "items": {"type": "string"}},
                "transitions": {"type": "array", "items": {"$ref": "#/definitions/domain.Transition"}}
            }
        },
        "handlers.PresetsResponse": {
            "type": "object",
            "properties": {
                "default": {"type": "string"},
                "presets": {"type": "array", "items": {"type": "string"}}
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
	Title:            "Complaints API",
	Description:      "Complaint submission, triage and resolution for a food-delivery platform.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
