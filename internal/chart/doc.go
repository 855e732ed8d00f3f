// Package chart loads chart directories and drives the render
// pipeline: merged values feed parsed template fragments, and the
// rendered text is parsed back into manifest documents.
//
// A chart directory looks like the familiar layout:
//
//	mysql/
//	  Chart.yaml        # name, version, appVersion
//	  values.yaml       # default values, lowest-precedence layer
//	  templates/
//	    _helpers.tpl    # named helpers, registered for include
//	    service.yaml
//	    statefulset.yaml
//
// Charts are loaded once; Load parses every template up front so a
// loaded Chart renders repeatedly without re-parsing.
package chart
