package clustermanager

import (
	"strings"
	"testing"

	"github.com/magiconair/properties/assert"
)

func TestNamingScheme_NodeName(t *testing.T) {
	assert.Equal(t, NewNamingScheme("web", "").NodeName(3), "web3")
	assert.Equal(t, NewNamingScheme("web", "fsn1").NodeName(12), "web12-fsn1")
}

func TestNamingScheme_Index(t *testing.T) {
	tests := []struct {
		Name   string
		Scheme NamingScheme
		Index  int
		Match  bool
	}{
		{"web1", NewNamingScheme("web", ""), 1, true},
		{"web42", NewNamingScheme("web", ""), 42, true},
		{"web0", NewNamingScheme("web", ""), 0, false},
		{"web01", NewNamingScheme("web", ""), 0, false},
		{"web", NewNamingScheme("web", ""), 0, false},
		{"webserver1", NewNamingScheme("web", ""), 0, false},
		{"web1-fsn1", NewNamingScheme("web", ""), 0, false},
		{"web1-fsn1", NewNamingScheme("web", "fsn1"), 1, true},
		{"web1-nbg1", NewNamingScheme("web", "fsn1"), 0, false},
		{"db.1", NewNamingScheme("db.", ""), 1, true},
		{"dbx1", NewNamingScheme("db.", ""), 0, false},
	}

	for _, test := range tests {
		index, ok := test.Scheme.Index(test.Name)
		if ok != test.Match || index != test.Index {
			t.Errorf("%s on scheme %s: got (%d, %v), want (%d, %v)", test.Name, test.Scheme.Cluster, index, ok, test.Index, test.Match)
		}
	}
}

func TestNamingScheme_LongestClusterOwnsNode(t *testing.T) {
	web := NewNamingScheme("web", "")
	web2 := NewNamingScheme("web2", "")
	schemes := []NamingScheme{web, web2}

	assert.Equal(t, web.Owns("web1", schemes), true)
	assert.Equal(t, web.Owns("web2", schemes), true)
	assert.Equal(t, web.Owns("web21", schemes), false)
	assert.Equal(t, web2.Owns("web21", schemes), true)
	assert.Equal(t, web2.Owns("web2", schemes), false)
}

func TestNamingScheme_SortByIndex(t *testing.T) {
	scheme := NewNamingScheme("web", "")
	nodes := []Node{{Name: "web10"}, {Name: "web2"}, {Name: "web1"}}

	scheme.SortByIndex(nodes)

	assert.Equal(t, nodeNames(nodes), []string{"web1", "web2", "web10"})
}

func TestSchemeFor(t *testing.T) {
	plain := SchemeFor(ClusterSpec{Name: "web", Region: "nbg1"}, "fsn1")
	assert.Equal(t, plain.Region, "")

	suffixed := SchemeFor(ClusterSpec{Name: "web", RegionSuffix: true}, "fsn1")
	assert.Equal(t, suffixed.NodeName(1), "web1-fsn1")

	explicit := SchemeFor(ClusterSpec{Name: "web", Region: "nbg1", RegionSuffix: true}, "fsn1")
	assert.Equal(t, explicit.NodeName(1), "web1-nbg1")
}

func TestCheckNaming(t *testing.T) {
	web := ClusterSpec{Name: "web", DesiredCount: 10}
	web1 := ClusterSpec{Name: "web1", DesiredCount: 2}

	assert.Equal(t, CheckNaming([]ClusterSpec{web, web1}, "fsn1"), nil)

	web.DesiredCount = 11
	err := CheckNaming([]ClusterSpec{web, web1}, "fsn1")
	if err == nil || !strings.Contains(err.Error(), "web11") {
		t.Errorf("expected web11 to be reported, got %v", err)
	}

	web.RegionSuffix = true
	assert.Equal(t, CheckNaming([]ClusterSpec{web, web1}, "fsn1"), nil)
}
