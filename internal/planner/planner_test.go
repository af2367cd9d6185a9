package planner_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fabrics/internal/kinematics"
	"github.com/san-kum/fabrics/internal/leaf"
	"github.com/san-kum/fabrics/internal/planner"
	"github.com/san-kum/fabrics/internal/symbolic"
)

const dt = 0.01

var goal = []float64{1, 1}

func pointGoal() planner.Goal {
	return planner.Goal{SubGoals: []planner.SubGoal{{
		Name:            "reach",
		Weight:          1,
		Primary:         true,
		ChildLink:       kinematics.EndEffector,
		DesiredPosition: goal,
		Epsilon:         0.01,
	}}}
}

func tightDamping() planner.Config {
	cfg := planner.DefaultConfig()
	cfg.Damper.BetaClose = 20
	return cfg
}

func ready(p *planner.Planner, c planner.Components) *planner.Planner {
	Expect(p.SetComponents(c)).To(Succeed())
	Expect(p.Concretize()).To(Succeed())
	Expect(p.State()).To(Equal(planner.Ready))
	return p
}

func distance(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += (a[i] - b[i]) * (a[i] - b[i])
	}
	return math.Sqrt(s)
}

// integrate advances (q, qdot) by one tick with constant acceleration.
func integrate(q, qdot, qdd []float64) {
	for i := range q {
		q[i] += dt*qdot[i] + 0.5*dt*dt*qdd[i]
		qdot[i] += dt * qdd[i]
	}
}

var _ = Describe("Planner", func() {
	var pm *kinematics.PointMass

	BeforeEach(func() {
		pm = kinematics.NewPointMass(2)
	})

	Describe("state machine", func() {
		It("rejects actions before concretize", func() {
			p, err := planner.New(2, pm)
			Expect(err).NotTo(HaveOccurred())
			_, err = p.ComputeAction(map[string][]float64{"q": {0, 0}, "qdot": {0, 0}})
			Expect(err).To(MatchError(planner.ErrNotReady))

			Expect(p.Concretize()).To(MatchError(planner.ErrInvalidTransition))
			Expect(p.SetComponents(planner.Components{Goal: pointGoal()})).To(Succeed())
			Expect(p.State()).To(Equal(planner.Concretized))

			_, err = p.ComputeAction(map[string][]float64{"q": {0, 0}, "qdot": {0, 0}})
			Expect(err).To(MatchError(planner.ErrNotReady))
		})

		It("never repeats a transition", func() {
			p, err := planner.New(2, pm)
			Expect(err).NotTo(HaveOccurred())
			ready(p, planner.Components{Goal: pointGoal()})

			Expect(p.SetComponents(planner.Components{Goal: pointGoal()})).To(MatchError(planner.ErrInvalidTransition))
			Expect(p.Concretize()).To(MatchError(planner.ErrInvalidTransition))
			Expect(p.AddLeaf(nil)).To(MatchError(planner.ErrInvalidTransition))
		})

		It("stays built when components are invalid", func() {
			p, err := planner.New(2, pm)
			Expect(err).NotTo(HaveOccurred())

			err = p.SetComponents(planner.Components{Goal: pointGoal(), CollisionLinks: []string{"wrist"}, NumberObstacles: 1})
			Expect(err).To(MatchError(planner.ErrUnknownLink))
			Expect(p.State()).To(Equal(planner.Built))

			err = p.SetComponents(planner.Components{Goal: pointGoal(), JointLimits: [][2]float64{{1, -1}, {-1, 1}}})
			Expect(err).To(MatchError(planner.ErrInvalidLimits))

			err = p.SetComponents(planner.Components{Goal: pointGoal(), JointLimits: [][2]float64{{-1, 1}}})
			Expect(err).To(MatchError(planner.ErrInvalidLimits))

			err = p.SetComponents(planner.Components{Goal: pointGoal(), NumberObstacles: 2})
			Expect(err).To(MatchError(planner.ErrNoCollisionLinks))
			Expect(p.State()).To(Equal(planner.Built))

			Expect(p.SetComponents(planner.Components{Goal: pointGoal()})).To(Succeed())
		})
	})

	Describe("parameters", func() {
		var p *planner.Planner

		BeforeEach(func() {
			var err error
			p, err = planner.New(2, pm, planner.WithConfig(tightDamping()))
			Expect(err).NotTo(HaveOccurred())
			ready(p, planner.Components{
				Goal:            pointGoal(),
				CollisionLinks:  []string{kinematics.EndEffector},
				NumberObstacles: 1,
			})
		})

		It("lists every parameter", func() {
			Expect(p.ParameterNames()).To(Equal([]string{
				"q", "qdot", "weight_goal_0", "x_goal_0", "x_obst_0", "radius_obst_0", "radius_body_ee",
			}))
			Expect(p.Leaves()).To(ContainElements("goal_0", "obstacle_0_ee", "base_inertia"))
		})

		It("names a missing parameter", func() {
			_, err := p.ComputeAction(map[string][]float64{
				"q": {0, 0}, "qdot": {0, 0}, "weight_goal_0": {1}, "x_goal_0": goal,
				"x_obst_0": {0.5, 0.55}, "radius_obst_0": {0.1},
			})
			Expect(err).To(MatchError(planner.ErrMissingParameter))
			Expect(err.Error()).To(ContainSubstring("radius_body_ee"))
		})

		It("rejects extra and mis-sized parameters", func() {
			params := map[string][]float64{
				"q": {0, 0}, "qdot": {0, 0}, "weight_goal_0": {1}, "x_goal_0": goal,
				"x_obst_0": {0.5, 0.55}, "radius_obst_0": {0.1}, "radius_body_ee": {0.05},
				"x_obst_1": {2, 2},
			}
			_, err := p.ComputeAction(params)
			Expect(err).To(MatchError(planner.ErrUnknownParameter))

			delete(params, "x_obst_1")
			params["x_goal_0"] = []float64{1, 1, 1}
			_, err = p.ComputeAction(params)
			Expect(err).To(MatchError(planner.ErrParameterSize))
		})
	})

	Describe("reaching a goal", func() {
		It("closes the distance monotonically", func() {
			p, err := planner.New(2, pm, planner.WithConfig(tightDamping()))
			Expect(err).NotTo(HaveOccurred())
			ready(p, planner.Components{Goal: pointGoal()})

			q, qdot := []float64{0, 0}, []float64{0, 0}
			params := map[string][]float64{"q": q, "qdot": qdot, "weight_goal_0": {1}, "x_goal_0": goal}

			last := distance(q, goal)
			reached := -1
			for tick := 0; tick < 2000; tick++ {
				qdd, err := p.ComputeAction(params)
				Expect(err).NotTo(HaveOccurred())
				integrate(q, qdot, qdd)

				d := distance(q, goal)
				Expect(d).To(BeNumerically("<=", last+1e-9), "tick %d", tick)
				last = d
				if reached < 0 && d < 0.01 {
					reached = tick
				}
			}
			Expect(reached).To(BeNumerically(">=", 0))
			Expect(last).To(BeNumerically("<", 0.01))
		})

		It("keeps clear of an obstacle on the way", func() {
			p, err := planner.New(2, pm, planner.WithConfig(tightDamping()))
			Expect(err).NotTo(HaveOccurred())
			ready(p, planner.Components{
				Goal:            pointGoal(),
				CollisionLinks:  []string{kinematics.EndEffector},
				NumberObstacles: 1,
			})

			center := []float64{0.5, 0.55}
			q, qdot := []float64{0, 0}, []float64{0, 0}
			params := map[string][]float64{
				"q": q, "qdot": qdot, "weight_goal_0": {1}, "x_goal_0": goal,
				"x_obst_0": center, "radius_obst_0": {0.1}, "radius_body_ee": {0.05},
			}

			minClearance := math.Inf(1)
			for tick := 0; tick < 4000; tick++ {
				qdd, err := p.ComputeAction(params)
				Expect(err).NotTo(HaveOccurred())
				integrate(q, qdot, qdd)
				minClearance = math.Min(minClearance, distance(q, center)-0.15)
			}
			Expect(minClearance).To(BeNumerically(">", 0.2))
			Expect(distance(q, goal)).To(BeNumerically("<", 0.05))
		})

		It("passes an obstacle directly between start and goal", func() {
			p, err := planner.New(2, pm)
			Expect(err).NotTo(HaveOccurred())
			ready(p, planner.Components{
				Goal:            pointGoal(),
				CollisionLinks:  []string{kinematics.EndEffector},
				NumberObstacles: 1,
			})

			center := []float64{0.5, 0.5}
			q, qdot := []float64{0, 0}, []float64{0, 0}
			params := map[string][]float64{
				"q": q, "qdot": qdot, "weight_goal_0": {1}, "x_goal_0": goal,
				"x_obst_0": center, "radius_obst_0": {0.1}, "radius_body_ee": {0.05},
			}

			for tick := 0; tick < 4000; tick++ {
				qdd, err := p.ComputeAction(params)
				Expect(err).NotTo(HaveOccurred())
				integrate(q, qdot, qdd)
				Expect(distance(q, center)).To(BeNumerically(">", 0.15), "tick %d", tick)
			}
			Expect(distance(q, goal)).To(BeNumerically("<", 0.05))
		})
	})

	Describe("goal variants", func() {
		It("fills spline references from the trajectory", func() {
			traj, err := leaf.NewTrajectory([][]float64{{0, 0}, {0.5, 0.2}, {1, 1}}, 5, dt, 1)
			Expect(err).NotTo(HaveOccurred())

			p, err := planner.New(2, pm)
			Expect(err).NotTo(HaveOccurred())
			ready(p, planner.Components{Goal: planner.Goal{SubGoals: []planner.SubGoal{{
				Weight: 1, ChildLink: kinematics.EndEffector, Type: planner.SplineGoal, Trajectory: traj,
			}}}})

			Expect(p.ParameterNames()).To(Equal([]string{"q", "qdot", "weight_goal_0", "t"}))

			params := map[string][]float64{"q": {0, 0}, "qdot": {0, 0}, "weight_goal_0": {1}, "t": {2}}
			qdd, err := p.ComputeAction(params)
			Expect(err).NotTo(HaveOccurred())
			Expect(qdd[0]).To(BeNumerically(">", 0))

			params["x_goal_0"] = []float64{1, 1}
			_, err = p.ComputeAction(params)
			Expect(err).To(MatchError(planner.ErrUnknownParameter))

			delete(params, "x_goal_0")
			delete(params, "t")
			_, err = p.ComputeAction(params)
			Expect(err).To(MatchError(planner.ErrMissingParameter))
		})

		It("follows a time-variant goal", func() {
			p, err := planner.New(2, pm)
			Expect(err).NotTo(HaveOccurred())
			ready(p, planner.Components{Goal: planner.Goal{SubGoals: []planner.SubGoal{{
				Weight:    1,
				ChildLink: kinematics.EndEffector,
				Type:      planner.TimeVariant,
				Desired: func(t *symbolic.Expr) symbolic.Vector {
					return symbolic.Vector{symbolic.Cos(t), symbolic.Sin(t)}
				},
			}}}})
			Expect(p.ParameterNames()).To(ContainElement("t"))

			qdd, err := p.ComputeAction(map[string][]float64{"q": {0, 0}, "qdot": {0, 0}, "weight_goal_0": {1}, "t": {0}})
			Expect(err).NotTo(HaveOccurred())
			Expect(qdd[0]).To(BeNumerically(">", 0))
		})

		It("attracts a relative link position", func() {
			arm, err := kinematics.NewPlanarArm(1, 1)
			Expect(err).NotTo(HaveOccurred())
			p, err := planner.New(2, arm)
			Expect(err).NotTo(HaveOccurred())
			ready(p, planner.Components{
				Goal: planner.Goal{SubGoals: []planner.SubGoal{{
					Weight: 1, ParentLink: "link1", ChildLink: kinematics.EndEffector, Indices: []int{1},
				}}},
				JointLimits: [][2]float64{{-2, 2}, {-2, 2}},
			})
			Expect(p.Leaves()).To(ContainElements("goal_0", "limit_0_lower", "limit_1_upper"))

			// second link along +x, goal asks for its y offset to reach 0.5
			qdd, err := p.ComputeAction(map[string][]float64{
				"q": {0, 0}, "qdot": {0, 0}, "weight_goal_0": {1}, "x_goal_0": {0.5},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(qdd[1]).To(BeNumerically(">", 0))
		})
	})

	Describe("goal parameters", func() {
		It("reuses the slices already in the map", func() {
			g := pointGoal()
			dst := make(map[string][]float64)
			g.Parameters(0, dst)
			w := dst["weight_goal_0"]
			Expect(w).To(Equal([]float64{1}))

			g.SubGoals[0].Weight = 3
			g.Parameters(1, dst)
			Expect(&dst["weight_goal_0"][0]).To(BeIdenticalTo(&w[0]))
			Expect(w[0]).To(Equal(3.0))
		})
	})

	Describe("non-holonomic base", func() {
		It("returns actuated accelerations", func() {
			drive := kinematics.NewDiffDrive(0.2)
			p, err := planner.New(3, drive, planner.WithNonHolonomic(drive))
			Expect(err).NotTo(HaveOccurred())
			ready(p, planner.Components{Goal: planner.Goal{SubGoals: []planner.SubGoal{{
				Weight: 1, ChildLink: kinematics.LinkBase,
			}}}})
			Expect(p.ActionDim()).To(Equal(2))
			Expect(p.ParameterNames()).To(HaveExactElements("q", "qdot", "qudot", "weight_goal_0", "x_goal_0"))

			acc, err := p.ComputeAction(map[string][]float64{
				"q": {0, 0, 0}, "qdot": {0, 0, 0}, "qudot": {0, 0},
				"weight_goal_0": {1}, "x_goal_0": {1, 0},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc).To(HaveLen(2))
			Expect(acc[0]).To(BeNumerically(">", 0))
		})
	})
})
