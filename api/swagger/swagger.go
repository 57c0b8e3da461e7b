package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Thesis Hub API",
        "description": "Thesis supervision and progress tracking service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Accounts, sessions, and tokens"},
        {"name": "Theses", "description": "Thesis lifecycle and membership"},
        {"name": "Supervisor Requests", "description": "Supervision proposals and decisions"},
        {"name": "Tasks", "description": "Task assignment, submissions, and feedback"},
        {"name": "Appointments", "description": "Meeting requests with the supervisor"},
        {"name": "Faculty", "description": "Faculty directory"},
        {"name": "Profile", "description": "Caller's own profile"},
        {"name": "Notifications", "description": "Notification feed"},
        {"name": "Reports", "description": "Progress report exports"},
        {"name": "Static", "description": "Stored file downloads"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/theses": {
            "get": {
                "tags": ["Theses"],
                "summary": "List my theses",
                "parameters": [
                    {"name": "unsupervised", "in": "query", "type": "boolean"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING_SUPERVISOR", "ACTIVE", "INACTIVE"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Theses"],
                "summary": "Create thesis",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateThesisRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/theses/join": {
            "post": {
                "tags": ["Theses"],
                "summary": "Join thesis by code and join password",
                "responses": {
                    "201": {"description": "Created"},
                    "401": {"description": "Wrong join password"},
                    "409": {"description": "Already a member or thesis closed"}
                }
            }
        },
        "/theses/{id}": {
            "get": {
                "tags": ["Theses"],
                "summary": "Get thesis detail or public view",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Theses"],
                "summary": "Update thesis",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Theses"],
                "summary": "Delete thesis that never had a supervisor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Supervisor already assigned"}
                }
            }
        },
        "/theses/{id}/join-password": {
            "post": {
                "tags": ["Theses"],
                "summary": "Rotate join password",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/theses/{id}/status": {
            "patch": {
                "tags": ["Theses"],
                "summary": "Close active thesis",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Closed"},
                    "409": {"description": "Thesis is not active"}
                }
            }
        },
        "/theses/{id}/members": {
            "post": {
                "tags": ["Theses"],
                "summary": "Add member by email",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "No student with this email"}
                }
            }
        },
        "/theses/{id}/members/{studentId}": {
            "delete": {
                "tags": ["Theses"],
                "summary": "Remove member",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Removed"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/theses/{id}/supervisor-requests": {
            "get": {
                "tags": ["Supervisor Requests"],
                "summary": "List thesis supervisor requests",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/supervisor-requests": {
            "post": {
                "tags": ["Supervisor Requests"],
                "summary": "Request supervisor",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Duplicate pending request or supervisor assigned"}
                }
            }
        },
        "/supervisor-requests/inbox": {
            "get": {
                "tags": ["Supervisor Requests"],
                "summary": "Pending requests addressed to the calling faculty",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/supervisor-requests/{id}": {
            "patch": {
                "tags": ["Supervisor Requests"],
                "summary": "Accept or reject request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already decided"}
                }
            },
            "delete": {
                "tags": ["Supervisor Requests"],
                "summary": "Withdraw pending request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Withdrawn"}
                }
            }
        },
        "/tasks": {
            "post": {
                "tags": ["Tasks"],
                "summary": "Create task",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Thesis closed"}
                }
            }
        },
        "/tasks/{id}": {
            "put": {
                "tags": ["Tasks"],
                "summary": "Update task",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Tasks"],
                "summary": "Delete task with submissions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/tasks/{id}/submissions": {
            "post": {
                "tags": ["Tasks"],
                "summary": "Submit task answer",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "content", "in": "formData", "type": "string"},
                    {"name": "file", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/submissions/{id}/feedback": {
            "post": {
                "tags": ["Tasks"],
                "summary": "Review submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/theses/{id}/tasks": {
            "get": {
                "tags": ["Tasks"],
                "summary": "List thesis tasks",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/theses/{id}/tasks/stats": {
            "get": {
                "tags": ["Tasks"],
                "summary": "Thesis task stats",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/appointments": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Request appointment",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/appointments/inbox": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Appointments addressed to the calling faculty",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/appointments/{id}": {
            "patch": {
                "tags": ["Appointments"],
                "summary": "Decide or reschedule appointment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already decided"}
                }
            },
            "delete": {
                "tags": ["Appointments"],
                "summary": "Delete appointment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/theses/{id}/appointments": {
            "get": {
                "tags": ["Appointments"],
                "summary": "List thesis appointments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/faculties": {
            "get": {
                "tags": ["Faculty"],
                "summary": "Browse faculty directory",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/faculties/{id}": {
            "get": {
                "tags": ["Faculty"],
                "summary": "Get faculty detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/profile": {
            "get": {
                "tags": ["Profile"],
                "summary": "Get my profile",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "tags": ["Profile"],
                "summary": "Update my profile",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/profile/image": {
            "post": {
                "tags": ["Profile"],
                "summary": "Upload profile image",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "image", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/profile/contributions": {
            "post": {
                "tags": ["Profile"],
                "summary": "Add contribution",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/profile/contributions/{id}": {
            "put": {
                "tags": ["Profile"],
                "summary": "Update contribution",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Profile"],
                "summary": "Remove contribution",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No content"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List my notifications",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/theses/{id}/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue progress report export",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Get report job with download link",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download finished export",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/static/document/{filename}": {
            "get": {
                "tags": ["Static"],
                "summary": "Download submission document",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "filename", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/static/profile-image/{filename}": {
            "get": {
                "tags": ["Static"],
                "summary": "Download profile image",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "filename", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["name", "email", "password", "role", "department"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["STUDENT", "FACULTY"]},
                "department": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateThesisRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "research_tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
