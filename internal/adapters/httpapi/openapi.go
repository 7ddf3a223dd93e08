package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/hidaya/internal/buildinfo"
	"github.com/Guilhem-Bonnet/hidaya/internal/httpjson"
)

type obj = map[string]any

func ref(name string) obj { return obj{"$ref": "#/components/schemas/" + name} }

func jsonOK(schema obj) obj {
	return obj{
		"description": "OK",
		"content":     obj{"application/json": obj{"schema": schema}},
	}
}

func jsonBody(schema obj) obj {
	return obj{
		"required": true,
		"content":  obj{"application/json": obj{"schema": schema}},
	}
}

var jsonErr = obj{
	"description": "Error",
	"content":     obj{"application/json": obj{"schema": ref("Error")}},
}

// op décrit une opération: réponse 200 (ou 201) + les codes d'erreur possibles.
func op(ok obj, body obj, errCodes ...string) obj {
	responses := obj{"200": ok}
	for _, c := range errCodes {
		responses[c] = jsonErr
	}
	out := obj{"responses": responses}
	if body != nil {
		out["requestBody"] = body
	}
	return out
}

func indexParamSpec() []any {
	return []any{obj{"name": "index", "in": "path", "required": true, "schema": obj{"type": "integer", "minimum": 0}}}
}

func openAPIDocument() obj {
	str := obj{"type": "string"}
	integer := obj{"type": "integer"}
	number := obj{"type": "number", "format": "double"}
	boolean := obj{"type": "boolean"}
	arrayOf := func(s obj) obj { return obj{"type": "array", "items": s} }

	schemas := obj{
		"Error": obj{
			"type":       "object",
			"properties": obj{"error": str, "code": str, "retry": obj{"type": "boolean"}},
			"required":   []any{"error"},
		},
		"Settings": obj{
			"type": "object",
			"properties": obj{
				"reciter":  str,
				"speed":    obj{"type": "number", "exclusiveMinimum": 0, "maximum": 4},
				"volume":   obj{"type": "number", "minimum": 0, "maximum": 1},
				"darkMode": boolean,
			},
			"additionalProperties": false,
		},
		"Chapter": obj{
			"type": "object",
			"properties": obj{
				"number": integer, "name": str, "englishName": str, "englishNameTranslation": str,
				"revelationType": str, "numberOfAyahs": integer,
			},
		},
		"Verse": obj{
			"type": "object",
			"properties": obj{
				"number": integer, "numberInSurah": integer, "arabic": str, "translation": str, "audio": str,
			},
		},
		"Playback": obj{
			"type": "object",
			"properties": obj{
				"sessionId": str,
				"state":     obj{"type": "string", "enum": []any{"stopped", "playing", "playing_all"}},
				"index":     obj{"type": "integer", "minimum": -1},
				"playing":   boolean,
				"playAll":   boolean,
				"length":    integer,
				"verse":     ref("Verse"),
				"speed":     number,
				"volume":    number,
			},
		},
		"ReaderView": obj{
			"type": "object",
			"properties": obj{
				"chapter":  ref("Chapter"),
				"reciter":  str,
				"verses":   arrayOf(ref("Verse")),
				"playback": ref("Playback"),
			},
		},
		"Share": obj{
			"type":       "object",
			"properties": obj{"target": obj{"type": "string", "enum": []any{"copy", "whatsapp", "twitter"}}, "text": str, "url": str},
		},
		"SearchResults": obj{
			"type": "object",
			"properties": obj{
				"query": str,
				"hits": arrayOf(obj{
					"type": "object",
					"properties": obj{
						"kind":    obj{"type": "string", "enum": []any{"chapter", "verse"}},
						"chapter": ref("Chapter"),
						"index":   integer,
						"verse":   ref("Verse"),
					},
				}),
			},
		},
		"DailyVerse": obj{
			"type": "object",
			"properties": obj{
				"date": str, "number": integer, "numberInSurah": integer, "arabic": str,
				"translation": str, "reference": str, "fallback": boolean,
			},
		},
		"PrayerTimes": obj{
			"type": "object",
			"properties": obj{
				"location":       obj{"type": "object", "properties": obj{"latitude": number, "longitude": number}},
				"locationSource": obj{"type": "string", "enum": []any{"explicit", "configured", "detected", "fallback"}},
				"date":           str,
				"nextIndex":      obj{"type": "integer", "minimum": 0, "maximum": 4},
				"prayers": arrayOf(obj{
					"type":       "object",
					"properties": obj{"name": str, "time": str, "display": str, "next": boolean},
				}),
			},
		},
		"Command": obj{
			"type": "object",
			"properties": obj{
				"action":  obj{"type": "string", "enum": []any{"play", "toggle", "toggle_all", "stop", "speed", "volume", "open", "close", "ended"}},
				"index":   integer,
				"chapter": integer,
				"value":   number,
				"ticket":  integer,
			},
			"required": []any{"action"},
		},
		"Job": obj{
			"type": "object",
			"properties": obj{
				"id":        str,
				"type":      obj{"type": "string", "enum": []any{"prefetch", "noop"}},
				"state":     obj{"type": "string", "enum": []any{"queued", "running", "finishing", "completed", "failed", "canceled"}},
				"progress":  number,
				"createdAt": obj{"type": "string", "format": "date-time"},
				"updatedAt": obj{"type": "string", "format": "date-time"},
				"params":    obj{"type": "object", "additionalProperties": true},
				"result":    obj{"type": "object", "additionalProperties": true},
				"errorCode": str,
				"error":     str,
			},
			"required": []any{"id", "type", "state", "progress", "createdAt", "updatedAt"},
		},
		"CreateJobRequest": obj{
			"type": "object",
			"properties": obj{
				"type": obj{"type": "string", "enum": []any{"prefetch", "noop"}},
				"params": obj{
					"type":        "object",
					"description": "prefetch: {chapter, reciter?}",
					"properties":  obj{"chapter": obj{"type": "integer", "minimum": 1, "maximum": 114}, "reciter": str},
				},
			},
			"required": []any{"type"},
		},
		"OfflineChapter": obj{
			"type": "object",
			"properties": obj{
				"chapter": integer, "reciter": str, "verses": integer, "directory": str,
				"updatedAt": obj{"type": "string", "format": "date-time"},
			},
		},
	}

	valueBody := jsonBody(obj{"type": "object", "properties": obj{"value": number}, "required": []any{"value"}})
	playback := jsonOK(ref("Playback"))

	paths := obj{
		"/api/v1/health":       obj{"get": op(obj{"description": "OK"}, nil)},
		"/api/v1/version":      obj{"get": op(obj{"description": "OK"}, nil)},
		"/api/v1/openapi.json": obj{"get": op(obj{"description": "OK"}, nil)},
		"/api/v1/events": obj{"get": obj{
			"parameters": []any{obj{"name": "topics", "in": "query", "schema": str, "description": "Préfixes de topics séparés par des virgules"}},
			"responses":  obj{"200": obj{"description": "SSE"}},
		}},
		"/api/v1/settings": obj{
			"get": op(jsonOK(ref("Settings")), nil, "500"),
			"put": op(jsonOK(ref("Settings")), jsonBody(ref("Settings")), "400", "500"),
		},
		"/api/v1/settings/reset": obj{"post": op(jsonOK(ref("Settings")), nil, "500")},
		"/api/v1/chapters":       obj{"get": op(jsonOK(arrayOf(ref("Chapter"))), nil, "502", "504")},
		"/api/v1/reader":         obj{"get": op(jsonOK(ref("ReaderView")), nil)},
		"/api/v1/reader/open": obj{"post": op(jsonOK(ref("ReaderView")),
			jsonBody(obj{"type": "object", "properties": obj{"chapter": obj{"type": "integer", "minimum": 1, "maximum": 114}}}),
			"400", "409", "502", "504")},
		"/api/v1/reader/close": obj{"post": op(jsonOK(ref("ReaderView")), nil)},
		"/api/v1/reader/verses/{index}/share": obj{"get": obj{
			"parameters": append(indexParamSpec(), obj{"name": "target", "in": "query", "schema": obj{"type": "string", "enum": []any{"copy", "whatsapp", "twitter"}}}),
			"responses":  obj{"200": jsonOK(ref("Share")), "400": jsonErr, "409": jsonErr},
		}},
		"/api/v1/reader/verses/{index}/share.png": obj{"get": obj{
			"parameters": indexParamSpec(),
			"responses": obj{
				"200": obj{"description": "QR code", "content": obj{"image/png": obj{"schema": obj{"type": "string", "format": "binary"}}}},
				"400": jsonErr, "409": jsonErr,
			},
		}},
		"/api/v1/playback":                obj{"get": op(playback, nil)},
		"/api/v1/playback/play/{index}":   obj{"post": withParams(op(playback, nil, "400", "422"), indexParamSpec())},
		"/api/v1/playback/toggle/{index}": obj{"post": withParams(op(playback, nil, "400", "422"), indexParamSpec())},
		"/api/v1/playback/toggle-all":     obj{"post": op(playback, nil, "400", "422")},
		"/api/v1/playback/stop":           obj{"post": op(playback, nil)},
		"/api/v1/playback/speed":          obj{"put": op(playback, valueBody, "400")},
		"/api/v1/playback/volume":         obj{"put": op(playback, valueBody, "400")},
		"/api/v1/search": obj{"get": obj{
			"parameters": []any{obj{"name": "q", "in": "query", "schema": str}},
			"responses":  obj{"200": jsonOK(ref("SearchResults"))},
		}},
		"/api/v1/search/typeahead": obj{"post": obj{
			"requestBody": jsonBody(obj{"type": "object", "properties": obj{"query": str}}),
			"responses":   obj{"202": obj{"description": "Résultats publiés sur search.results"}, "400": jsonErr},
		}},
		"/api/v1/daily": obj{"get": op(jsonOK(ref("DailyVerse")), nil)},
		"/api/v1/prayer-times": obj{"get": obj{
			"parameters": []any{
				obj{"name": "lat", "in": "query", "schema": number},
				obj{"name": "lon", "in": "query", "schema": number},
			},
			"responses": obj{"200": jsonOK(ref("PrayerTimes")), "400": jsonErr, "502": jsonErr, "504": jsonErr},
		}},
		"/api/v1/commands": obj{"post": op(jsonOK(ref("ReaderView")), jsonBody(ref("Command")), "400", "409", "422")},
		"/api/v1/jobs": obj{
			"get": op(jsonOK(arrayOf(ref("Job"))), nil, "500"),
			"post": obj{
				"requestBody": jsonBody(ref("CreateJobRequest")),
				"responses":   obj{"201": jsonOK(ref("Job")), "400": jsonErr, "500": jsonErr},
			},
		},
		"/api/v1/jobs/{id}":        obj{"get": op(jsonOK(ref("Job")), nil, "404", "500")},
		"/api/v1/jobs/{id}/cancel": obj{"post": op(jsonOK(ref("Job")), nil, "404", "500")},
		"/api/v1/prefetch/{chapter}": obj{"post": obj{
			"parameters": []any{
				obj{"name": "chapter", "in": "path", "required": true, "schema": obj{"type": "integer"}},
				obj{"name": "reciter", "in": "query", "schema": str},
			},
			"responses": obj{"201": jsonOK(ref("Job")), "400": jsonErr},
		}},
		"/api/v1/offline": obj{"get": op(jsonOK(arrayOf(ref("OfflineChapter"))), nil, "500")},
	}

	return obj{
		"openapi":    "3.0.3",
		"info":       obj{"title": "Hidaya API", "version": buildinfo.Current().Version},
		"components": obj{"schemas": schemas},
		"paths":      paths,
	}
}

func withParams(operation obj, params []any) obj {
	operation["parameters"] = params
	return operation
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, openAPIDocument())
}
