// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/stock/batches": {
            "get": {"tags": ["stock"], "summary": "List stock batches", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["stock"], "summary": "Receive stock into a position", "responses": {"201": {"description": "Created"}, "409": {"description": "Position occupied"}}}
        },
        "/stock/batches/{id}": {
            "get": {"tags": ["stock"], "summary": "Get a stock batch", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/stock/batches/{id}/move": {
            "post": {"tags": ["stock"], "summary": "Move all or part of a batch", "responses": {"200": {"description": "OK"}, "409": {"description": "Position occupied"}}}
        },
        "/stock/levels": {
            "get": {"tags": ["stock"], "summary": "Aggregated stock levels", "responses": {"200": {"description": "OK"}}}
        },
        "/stock/levels/export": {
            "get": {"tags": ["stock"], "summary": "Export stock levels as XLSX", "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"], "responses": {"200": {"description": "OK"}}}
        },
        "/warehouses": {
            "get": {"tags": ["warehouses"], "summary": "List storage locations", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["warehouses"], "summary": "Create a storage location", "responses": {"201": {"description": "Created"}}}
        },
        "/warehouses/{id}/capacity": {
            "get": {"tags": ["warehouses"], "summary": "Capacity report for a location", "responses": {"200": {"description": "OK"}}}
        },
        "/sales": {
            "get": {"tags": ["sales"], "summary": "List sales", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["sales"], "summary": "Create a sale", "responses": {"201": {"description": "Created"}, "422": {"description": "Insufficient stock or payment declined"}, "504": {"description": "Payment confirmation timed out"}}}
        },
        "/sales/{id}/receipt": {
            "get": {"tags": ["sales"], "summary": "PDF receipt", "produces": ["application/pdf"], "responses": {"200": {"description": "OK"}}}
        },
        "/sales/returns": {
            "get": {"tags": ["returns"], "summary": "List returns", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["returns"], "summary": "Request a return", "responses": {"201": {"description": "Created"}}}
        },
        "/returns/{id}/approve": {
            "post": {"tags": ["returns"], "summary": "Approve a pending return", "responses": {"200": {"description": "OK"}, "409": {"description": "Already decided"}}}
        },
        "/returns/{id}/reject": {
            "post": {"tags": ["returns"], "summary": "Reject a pending return", "responses": {"200": {"description": "OK"}, "409": {"description": "Already decided"}}}
        },
        "/payments/mpesa/callback": {
            "post": {"tags": ["payments"], "summary": "M-Pesa STK push result callback", "security": [], "responses": {"200": {"description": "Accepted"}}}
        },
        "/alerts": {
            "get": {"tags": ["alerts"], "summary": "Current stock and capacity alerts", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "DukaPOS API",
	Description:      "Point of sale and inventory for multi-location retail.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
