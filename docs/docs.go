package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.HealthResponse"}}
                }
            }
        },
        "/api/v1/forest-density/legend": {
            "get": {
                "description": "Bin edges, colours and labels used to render the layer",
                "produces": ["application/json"],
                "tags": ["Forest Density"],
                "summary": "Forest density legend",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/utils.SuccessResponse"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.Legend"}}}
                            ]
                        }
                    }
                }
            }
        },
        "/api/v1/forest-density/loads": {
            "post": {
                "description": "Validates the load options and publishes a job for the worker.\nThe file path is resolved on the worker host and must lie\ninside INGEST_ROOT; relative paths are taken from there.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Forest Density"],
                "summary": "Queue a forest density load",
                "parameters": [
                    {
                        "description": "Load options",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/dto.LoadRequest"}
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Accepted",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/utils.SuccessResponse"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.LoadJobResponse"}}}
                            ]
                        }
                    },
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/forest-density/stats": {
            "post": {
                "description": "Intersects the polygon with the stored forest density cells and returns\nmean canopy, area above the threshold and area per canopy class (square metres).",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Forest Density"],
                "summary": "Canopy statistics for a polygon",
                "parameters": [
                    {
                        "description": "Query polygon, threshold and bin edges",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/dto.StatsRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/utils.SuccessResponse"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.StatsResult"}}}
                            ]
                        }
                    },
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.AreaClass": {
            "type": "object",
            "properties": {
                "area_m2": {"type": "number"},
                "max": {"type": "number"},
                "min": {"type": "number"}
            }
        },
        "domain.Legend": {
            "type": "object",
            "properties": {
                "bin_edges": {"type": "array", "items": {"type": "number"}},
                "colors": {"type": "array", "items": {"type": "string"}},
                "description": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "domain.StatsResult": {
            "type": "object",
            "properties": {
                "area_above_threshold_m2": {"type": "number"},
                "area_by_class": {"type": "array", "items": {"$ref": "#/definitions/domain.AreaClass"}},
                "bin_edges": {"type": "array", "items": {"type": "number"}},
                "mean_canopy": {"type": "number"},
                "pixel_count": {"type": "integer"},
                "query_area_m2": {"type": "number"},
                "threshold": {"type": "number"},
                "total_area_m2": {"type": "number"}
            }
        },
        "dto.HealthResponse": {
            "type": "object",
            "properties": {
                "services": {"type": "object", "additionalProperties": {"type": "string"}},
                "status": {"type": "string"}
            }
        },
        "dto.LoadJobResponse": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "stream": {"type": "string"}
            }
        },
        "dto.LoadRequest": {
            "type": "object",
            "required": ["file"],
            "properties": {
                "batch_size": {"type": "integer", "minimum": 1, "example": 500},
                "canopy_field": {"type": "string", "example": "canopy_pct"},
                "file": {"type": "string", "example": "/data/canopy.ndjson.gz"},
                "ignore_conflicts": {"type": "boolean"},
                "mode": {"type": "string", "enum": ["strict", "lenient"], "example": "strict"},
                "replace": {"type": "boolean"},
                "source": {"type": "string", "maxLength": 64, "example": "hansen_2023"},
                "srid": {"type": "integer", "example": 4326},
                "tile_field": {"type": "string", "example": "tile_id"}
            }
        },
        "dto.StatsRequest": {
            "type": "object",
            "properties": {
                "bins": {"type": "array", "items": {"type": "number"}},
                "geometry": {"description": "GeoJSON Polygon; an optional \"crs\" member names its CRS, WGS84 otherwise", "type": "object"},
                "threshold": {"type": "number", "example": 60}
            }
        },
        "errors.AppError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true},
                "message": {"type": "string"}
            }
        },
        "utils.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/errors.AppError"}
            }
        },
        "utils.Meta": {
            "type": "object",
            "properties": {
                "cached": {"type": "boolean"},
                "time_ms": {"type": "number"}
            }
        },
        "utils.SuccessResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "meta": {"$ref": "#/definitions/utils.Meta"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Forest Density Service API",
	Description:      "Forest canopy density ingestion and spatial aggregation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
