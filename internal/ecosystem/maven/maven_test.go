package maven

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/cboyd0319/bazbom/internal/licensecache"
)

func TestScanPomXML(t *testing.T) {
	pom := `<project>
	<properties>
		<guava.version>32.1.3-jre</guava.version>
	</properties>
	<licenses>
		<license><name>Apache-2.0</name></license>
	</licenses>
	<dependencies>
		<dependency>
			<groupId>com.google.guava</groupId>
			<artifactId>guava</artifactId>
			<version>${guava.version}</version>
		</dependency>
		<dependency>
			<groupId>junit</groupId>
			<artifactId>junit</artifactId>
			<version>4.13.2</version>
			<scope>test</scope>
		</dependency>
	</dependencies>
</project>`
	root := fstest.MapFS{pomXML: {Data: []byte(pom)}}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Packages) != 2 {
		t.Fatalf("got %d packages, want 2", len(res.Packages))
	}
	for _, p := range res.Packages {
		if p.Coordinate.Name == "com.google.guava:guava" && p.Coordinate.Version != "32.1.3-jre" {
			t.Errorf("property substitution failed: %+v", p)
		}
	}
}

func TestScanPomXMLUnresolvedProperty(t *testing.T) {
	pom := `<project>
	<dependencies>
		<dependency>
			<groupId>com.example</groupId>
			<artifactId>thing</artifactId>
			<version>${parent.version}</version>
		</dependency>
	</dependencies>
</project>`
	root := fstest.MapFS{pomXML: {Data: []byte(pom)}}
	s := New()
	res, err := s.Scan(context.Background(), root, licensecache.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a warning about unresolved property")
	}
	if res.Packages[0].Coordinate.Version != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN version, got %q", res.Packages[0].Coordinate.Version)
	}
}
