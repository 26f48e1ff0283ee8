// Package manifest reads the layer list of a draw.io diagram.
//
// # Overview
//
// A draw.io file is an <mxfile> holding one or more <diagram> pages. Each
// page carries an <mxGraphModel> whose <root> lists cells. The first cell
// without a parent is the model root; every cell whose parent is that root
// is a layer. Everything else (shapes, edges, groups) hangs below a layer
// and is ignored here.
//
//	<mxfile>
//	  <diagram name="Page-1" id="p1">
//	    <mxGraphModel>
//	      <root>
//	        <mxCell id="0"/>
//	        <mxCell id="1" parent="0"/>                 <!-- Background -->
//	        <mxCell id="a" value="Axes" parent="0"/>    <!-- layer -->
//	        <mxCell id="b" value="Curve" parent="0"/>   <!-- layer -->
//	      </root>
//	    </mxGraphModel>
//	  </diagram>
//	</mxfile>
//
// Page payloads may also be stored compressed (base64 of raw deflate of the
// URI-encoded model); [Parse] inflates them transparently.
//
// # Layers
//
// A [Layer] is the pair of its stable cell id and its display name, plus its
// native index among all layer cells of the page. The index is what the
// draw.io command line takes in --layers.
//
// # Background
//
// draw.io creates every diagram with an unnamed default layer, shown as
// "Background" in the editor. It is never part of [Manifest.Layers]: authors
// rename it to make it participate in builds. It is kept in
// [Manifest.Background] so a diagram consisting only of the background can
// still be exported as a whole.
//
// Only the first page of a file is read.
package manifest
