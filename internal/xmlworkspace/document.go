// =============================================================================
// Offline Geodatabase Converter - XML Workspace Document
// =============================================================================
//
// This module defines the XML workspace document: a portable serialization of
// a geodatabase's schema, data and metadata.
//
// XML STRUCTURE:
//
//   <Workspace xmlns="http://www.esri.com/schemas/ArcGIS/10.8">
//     <WorkspaceDefinition>
//       <WorkspaceType>esriLocalDatabaseWorkspace</WorkspaceType>
//       <Version>1.0</Version>
//       <SourceWorkspace>{...}</SourceWorkspace>
//       <ExportOptions>
//         <DataOption>DATA</DataOption>
//         <StorageType>BINARY</StorageType>
//         <MetadataOption>METADATA</MetadataOption>
//       </ExportOptions>
//       <DatasetDefinitions>
//         <DataElement>
//           <CatalogPath>/FC=Parcels</CatalogPath>
//           <Name>Parcels</Name>
//           <DatasetType>esriDTFeatureClass</DatasetType>
//           <DSID>{...}</DSID>
//           <ShapeType>esriGeometryPolygon</ShapeType>
//           <SpatialReference><WKID>4326</WKID></SpatialReference>
//           <Fields><FieldArray><Field>...</Field></FieldArray></Fields>
//           <Metadata><XmlDoc>...</XmlDoc></Metadata>
//         </DataElement>
//       </DatasetDefinitions>
//     </WorkspaceDefinition>
//     <WorkspaceData>
//       <DatasetData>
//         <DatasetName>Parcels</DatasetName>
//         <DatasetType>esriDTFeatureClass</DatasetType>
//         <Data><Records>
//           <Record><Values>
//             <Value>1</Value>
//             <Value encoding="base64">AQMA/w==</Value>
//             <Value null="true"></Value>
//           </Values></Record>
//         </Records></Data>
//       </DatasetData>
//     </WorkspaceData>
//   </Workspace>
//
// =============================================================================

package xmlworkspace

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/juju/errors"
)

// Namespace is the XML namespace of workspace documents.
const Namespace = "http://www.esri.com/schemas/ArcGIS/10.8"

const (
	workspaceType   = "esriLocalDatabaseWorkspace"
	documentVersion = "1.0"
)

// =============================================================================
// DOCUMENT STRUCTURE
// =============================================================================

// Document is the root of an XML workspace document.
type Document struct {
	XMLName    xml.Name   `xml:"http://www.esri.com/schemas/ArcGIS/10.8 Workspace"`
	Definition Definition `xml:"WorkspaceDefinition"`
	Data       *Data      `xml:"WorkspaceData,omitempty"`
}

// Definition holds the schema part of the document.
type Definition struct {
	WorkspaceType   string        `xml:"WorkspaceType"`
	Version         string        `xml:"Version"`
	SourceWorkspace string        `xml:"SourceWorkspace,omitempty"`
	ExportTime      string        `xml:"ExportTime,omitempty"`
	Options         ExportOptions `xml:"ExportOptions"`
	Datasets        []DataElement `xml:"DatasetDefinitions>DataElement"`
}

// DataElement describes one table or feature class.
type DataElement struct {
	CatalogPath string         `xml:"CatalogPath"`
	Name        string         `xml:"Name"`
	AliasName   string         `xml:"AliasName,omitempty"`
	DatasetType string         `xml:"DatasetType"`
	DSID        string         `xml:"DSID"`
	ShapeType   string         `xml:"ShapeType,omitempty"`
	WKID        int            `xml:"SpatialReference>WKID,omitempty"`
	Fields      []FieldElement `xml:"Fields>FieldArray>Field"`
	Metadata    *Metadata      `xml:"Metadata,omitempty"`
}

// FieldElement describes one field of a dataset.
type FieldElement struct {
	Name       string `xml:"Name"`
	Type       string `xml:"Type"`
	IsNullable bool   `xml:"IsNullable"`
	Length     int    `xml:"Length,omitempty"`
	AliasName  string `xml:"AliasName,omitempty"`
}

// Metadata carries a dataset's metadata document as text.
type Metadata struct {
	XMLDoc string `xml:"XmlDoc"`
}

// Data holds the records part of the document.
type Data struct {
	Datasets []DatasetData `xml:"DatasetData"`
}

// DatasetData holds the records of one dataset.
type DatasetData struct {
	DatasetName string          `xml:"DatasetName"`
	DatasetType string          `xml:"DatasetType"`
	Records     []RecordElement `xml:"Data>Records>Record"`
}

// RecordElement is one record; values follow the field order of the
// dataset definition.
type RecordElement struct {
	Values []ValueElement `xml:"Values>Value"`
}

// ValueElement is one encoded field value.
type ValueElement struct {
	Null     bool   `xml:"null,attr,omitempty"`
	Encoding string `xml:"encoding,attr,omitempty"`
	Text     string `xml:",chardata"`
}

// =============================================================================
// READ / WRITE
// =============================================================================

// Write encodes the document with an XML declaration and indentation.
func Write(w io.Writer, doc *Document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Trace(err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Annotate(err, "encoding workspace document")
	}
	if err := enc.Close(); err != nil {
		return errors.Trace(err)
	}
	_, err := io.WriteString(w, "\n")
	return errors.Trace(err)
}

// Read decodes a document.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.NotValidf("workspace document: %v", err)
	}
	if doc.Definition.WorkspaceType == "" {
		return nil, errors.NotValidf("workspace document without WorkspaceType")
	}
	return &doc, nil
}

// ReadFile decodes the document at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("XML workspace document %q", path)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()

	doc, err := Read(f)
	return doc, errors.Annotatef(err, "reading %q", path)
}

// dataFor returns the records section of the named dataset, or nil.
func (d *Document) dataFor(name string) *DatasetData {
	if d.Data == nil {
		return nil
	}
	for i := range d.Data.Datasets {
		if d.Data.Datasets[i].DatasetName == name {
			return &d.Data.Datasets[i]
		}
	}
	return nil
}
