package ctsim

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Simulator", func() {
	var (
		mockCtrl *gomock.Controller
		vis      *MockVisualizer
		cfg      *SimConfig
		sim      *Simulator
		dir      string
	)

	newSim := func() {
		var err error
		sim, err = NewSimulator(cfg, quietLogger())
		Expect(err).ToNot(HaveOccurred())
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		vis = NewMockVisualizer(mockCtrl)
		dir = GinkgoT().TempDir()

		cfg = DefaultSimConfig()
		cfg.TopologyFile = filepath.Join("testdata", "topology.yaml")
		cfg.AppFile = filepath.Join("testdata", "applications.yaml")
		cfg.AnimFile = ""
		newSim()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should refuse an invalid configuration", func() {
		cfg.RunDuration = 0
		_, err := NewSimulator(cfg, quietLogger())
		Expect(err).To(HaveOccurred())
	})

	It("should reject a phase called out of order", func() {
		err := sim.DriverBoot()

		var stateErr *StateError
		Expect(errors.As(err, &stateErr)).To(BeTrue())
		Expect(stateErr.Op).To(Equal("DriverBoot"))
		Expect(stateErr.Want).To(Equal(PhaseAnimationReady))
		Expect(stateErr.Have).To(Equal(PhaseUninitialized))
		Expect(sim.Phase()).To(Equal(PhaseUninitialized))
	})

	It("should reject a phase called twice", func() {
		Expect(sim.InputInit()).To(Succeed())
		err := sim.InputInit()

		var stateErr *StateError
		Expect(errors.As(err, &stateErr)).To(BeTrue())
		Expect(sim.Phase()).To(Equal(PhaseInputReady))
	})

	It("should stay in InputReady when the topology cannot be loaded", func() {
		cfg.TopologyFile = filepath.Join(dir, "absent.yaml")
		newSim()

		Expect(sim.InputInit()).To(Succeed())
		err := sim.DriverCompile()

		var srcErr *SourceError
		Expect(errors.As(err, &srcErr)).To(BeTrue())
		Expect(sim.Phase()).To(Equal(PhaseInputReady))
		Expect(sim.Graph()).To(BeNil())

		var stateErr *StateError
		Expect(errors.As(sim.AnimationInit(), &stateErr)).To(BeTrue())
	})

	It("should stop the run when the manifest cannot be loaded", func() {
		cfg.AppFile = filepath.Join(dir, "absent.yaml")
		newSim()

		err := sim.Run()

		var srcErr *SourceError
		Expect(errors.As(err, &srcErr)).To(BeTrue())
		Expect(sim.Phase()).To(Equal(PhaseBooted))
	})

	It("should draw resources and links, then nodes in boot order", func() {
		sim.SetVisualizer(vis)
		Expect(sim.InputInit()).To(Succeed())
		Expect(sim.DriverCompile()).To(Succeed())
		g := sim.Graph()

		var prev *gomock.Call
		inOrder := func(call *gomock.Call) {
			if prev != nil {
				call.After(prev)
			}
			prev = call
		}
		for idx, resource := range cfg.Resources {
			inOrder(vis.EXPECT().AddResource(resource).Return(idx))
		}
		for _, link := range g.Links {
			inOrder(vis.EXPECT().RegisterLink(link))
		}
		for _, role := range BootOrder() {
			for _, node := range g.Partition(role) {
				inOrder(vis.EXPECT().RegisterNode(node, role.VisualSize(), role.IconIndex()))
			}
		}

		Expect(sim.AnimationInit()).To(Succeed())
		Expect(sim.DriverBoot()).To(Succeed())
		Expect(sim.Phase()).To(Equal(PhaseBooted))

		for _, node := range g.Nodes {
			Expect(node.Powered).To(BeTrue())
		}
		Expect(testutil.ToFloat64(sim.Metrics().NodesPowered.WithLabelValues("Station"))).To(Equal(2.0))
	})

	It("should record one power-on per node before the run", func() {
		Expect(sim.InputInit()).To(Succeed())
		Expect(sim.DriverCompile()).To(Succeed())
		Expect(sim.AnimationInit()).To(Succeed())
		Expect(sim.DriverBoot()).To(Succeed())

		Expect(sim.Trace().Len()).To(Equal(9))
		for _, trace := range sim.Trace().Ordered() {
			Expect(trace.TraceType).To(Equal("power-on"))
			Expect(trace.TraceTime).To(Equal("0"))
		}
	})

	It("should take the run length from the configuration", func() {
		cfg.RunDuration = 4.0
		newSim()
		Expect(sim.Run()).To(Succeed())

		for _, app := range sim.Apps() {
			switch app.Name {
			case "heartbeat":
				Expect(app.Started).To(BeTrue())
				Expect(app.Ticks).To(Equal(1))
			case "name-resolution":
				Expect(app.Started).To(BeTrue())
				Expect(app.Stopped).To(BeFalse())
			}
		}
	})

	It("should run every phase and write every output", func() {
		cfg.AnimFile = filepath.Join(dir, "anim.yaml")
		cfg.TraceFile = filepath.Join(dir, "trace.yaml")
		cfg.ArchiveFile = filepath.Join(dir, "runs.sqlite")
		cfg.MetricsFile = filepath.Join(dir, "ctsim.prom")
		newSim()

		Expect(sim.Run()).To(Succeed())
		Expect(sim.Phase()).To(Equal(PhaseTerminated))

		By("starting applications only on roles that start them")
		Expect(sim.Apps()).To(HaveLen(7))
		for _, app := range sim.Apps() {
			Expect(app.Started).To(Equal(app.Node.Role.StartsApps()), app.Node.Name)
			if app.Name == "heartbeat" {
				Expect(app.Ticks).To(Equal(4))
			}
			if app.Name == "name-resolution" {
				Expect(app.Stopped).To(BeTrue())
			}
		}
		ops := map[string]int{}
		for _, trace := range sim.Trace().Ordered() {
			ops[trace.TraceType] += 1
		}
		Expect(ops).To(Equal(map[string]int{"power-on": 9, "app-start": 6, "app-tick": 16, "app-stop": 2}))
		Expect(testutil.ToFloat64(sim.Metrics().AppsStarted.WithLabelValues("EndHost"))).To(Equal(3.0))

		By("writing the animation")
		doc, err := ReadAnimDoc(cfg.AnimFile)
		Expect(err).ToNot(HaveOccurred())
		Expect(doc.Resources).To(HaveLen(5))
		Expect(doc.Nodes).To(HaveLen(9))
		Expect(doc.Links).To(HaveLen(3))

		By("writing the trace")
		Expect(cfg.TraceFile).To(BeAnExistingFile())

		By("archiving the run")
		ra, err := OpenRunArchive(cfg.ArchiveFile)
		Expect(err).ToNot(HaveOccurred())
		defer ra.Close()
		runs, err := ra.Runs()
		Expect(err).ToNot(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].ID).To(Equal(sim.RunID()))
		Expect(runs[0].NumNodes).To(Equal(9))
		traces, err := ra.Count("traces", sim.RunID())
		Expect(err).ToNot(HaveOccurred())
		Expect(traces).To(Equal(33))

		By("writing the metrics")
		metrics, err := os.ReadFile(cfg.MetricsFile)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(metrics)).To(ContainSubstring("ctsim_nodes_powered_total"))
	})

	It("should terminate and report every output that failed", func() {
		sim.SetVisualizer(vis)
		vis.EXPECT().AddResource(gomock.Any()).Return(0).AnyTimes()
		vis.EXPECT().RegisterLink(gomock.Any()).AnyTimes()
		vis.EXPECT().RegisterNode(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
		vis.EXPECT().Flush().Return(errors.New("animation device gone"))
		cfg.TraceFile = filepath.Join(dir, "missing", "trace.yaml")

		err := sim.Run()

		Expect(err).To(MatchError(ContainSubstring("animation device gone")))
		Expect(err.Error()).To(ContainSubstring("trace"))
		Expect(sim.Phase()).To(Equal(PhaseTerminated))
	})
})
