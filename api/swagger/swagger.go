package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Timetable API",
        "description": "Timetable scheduling and academic calendar engine",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Calendar", "description": "Academic years, terms and the current-year switch"},
        {"name": "Timetable", "description": "Weekly slot placement with conflict checking"},
        {"name": "Attendance", "description": "Per-period rolls and attendance rates"},
        {"name": "Exports", "description": "CSV/PDF timetable exports with signed links"}
    ],
    "paths": {
        "/academic-years": {
            "get": {
                "tags": ["Calendar"],
                "summary": "List academic years",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Calendar"],
                "summary": "Create academic year",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/academic-years/current": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Get the current academic year",
                "responses": {
                    "200": {"description": "OK"},
                    "500": {"description": "Calendar state inconsistency"}
                }
            }
        },
        "/academic-years/{id}/current": {
            "put": {
                "tags": ["Calendar"],
                "summary": "Move the current flag to another year",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Year not found"}
                }
            }
        },
        "/academic-years/{id}/terms": {
            "get": {
                "tags": ["Calendar"],
                "summary": "List terms of a year",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Calendar"],
                "summary": "Create a term with its three sub-terms",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/timetable": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Place a timetable entry",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation error"},
                    "409": {"description": "Placement conflict"}
                }
            }
        },
        "/timetable/{id}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get an entry with periods and attendance",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Timetable"],
                "summary": "Update an entry",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Placement conflict"},
                    "422": {"description": "Entry outside the current academic year"}
                }
            },
            "delete": {
                "tags": ["Timetable"],
                "summary": "Delete an entry",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/timetable/{id}/periods/{index}/attendance": {
            "put": {
                "tags": ["Attendance"],
                "summary": "Record the roll of one period",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "index", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Index out of range or foreign student"},
                    "422": {"description": "Entry outside the current academic year"}
                }
            }
        },
        "/classes/{id}/subclasses/{letter}/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List the current-year timetable of a subclass",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "letter", "in": "path", "required": true, "type": "string"},
                    {"name": "subjectId", "in": "query", "required": false, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/classes/{id}/subclasses/{letter}/timetable/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export a subclass timetable to CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "letter", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": false, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export via its signed token",
                "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "400": {"description": "Invalid or expired token"}
                }
            }
        },
        "/teachers/{id}/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List a teacher's current-year timetable",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "412": {"description": "Teacher has no subject assignments"}
                }
            }
        },
        "/students/{id}/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List the timetable of a student's subclass",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "412": {"description": "Student has no class placement"}
                }
            }
        },
        "/students/{id}/attendance-rate": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Get a student's current-year attendance rate",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
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
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
